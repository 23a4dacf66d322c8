package config

// DefaultListingSelectors match article cards on listing pages. Site-specific
// layouts come first, generic ones after. Class matches are partial.
var DefaultListingSelectors = []string{
	`article[class*="news-article"]`,
	`article[class*="article-badge-in-image"]`,
	`div[class*="gkNewsElement"]`,
	`div[class*="nspArt"]`,
	`article[class*="wp-block-post"]`,
	`div[class*="post-item"]`,
	`article[class*="entry-box"]`,
	`article[class*="card"]`,
	`article[class*="article"]`,
	`article[class*="post"]`,
	`div[class*="article"]`,
	`div[class*="news-item"]`,
}

// DefaultTitleRules read the headline, then the OpenGraph title.
var DefaultTitleRules = []ExtractRule{
	{Kind: RuleSingleBest, Selector: "h1"},
	{Kind: RuleSingleBest, Selector: `meta[property="og:title"]`, Attr: "content"},
}

// DefaultSubtitleRules read the standfirst below the headline.
var DefaultSubtitleRules = []ExtractRule{
	{Kind: RuleSingleBest, Selector: "h2"},
	{Kind: RuleSingleBest, Selector: "h3"},
	{Kind: RuleSingleBest, Selector: "p.lead"},
	{Kind: RuleSingleBest, Selector: "div.subtitle"},
}

// DefaultBodyRules cover the common CMS body containers, most specific first.
var DefaultBodyRules = []ExtractRule{
	{Kind: RuleSingleBest, Selector: "div.itemFullText"},
	{Kind: RuleSingleBest, Selector: "article.article-body-width"},
	{Kind: RuleSingleBest, Selector: "article.article-body"},
	{Kind: RuleSingleBest, Selector: "div.entry-content"},
	{Kind: RuleSingleBest, Selector: "article"},
	{Kind: RuleSingleBest, Selector: "div.content"},
	{Kind: RuleSingleBest, Selector: "div.article-body"},
	{Kind: RuleSingleBest, Selector: "div.article-content"},
	{Kind: RuleSingleBest, Selector: "div.post-content"},
	{Kind: RuleSingleBest, Selector: "div.nota-content"},
	{Kind: RuleReadability},
}

// withBody prepends site-specific body rules to the defaults.
func withBody(rules ...ExtractRule) []ExtractRule {
	return append(rules, DefaultBodyRules...)
}

// withListing prepends site-specific card selectors to the defaults.
func withListing(selectors ...string) []string {
	return append(selectors, DefaultListingSelectors...)
}

// DefaultSources returns the built-in San Juan (Argentina) catalog in
// declaration order, with defaults applied.
func DefaultSources() []SourceConfig {
	sources := []SourceConfig{
		{
			ID:            "diariodecuyo",
			Name:          "Diario de Cuyo",
			ListingURLs:   []string{"https://www.diariodecuyo.com.ar/"},
			DomainAliases: []string{"diariodecuyo.com.ar"},
		},
		{
			ID:               "sisanjuan",
			Name:             "SI San Juan",
			ListingURLs:      []string{"https://www.sisanjuan.gob.ar/"},
			ListingSelectors: withListing(`div[class*="gkNewsElement"]`),
			BodyRules: withBody(
				ExtractRule{Kind: RuleStructuralFallback, Selector: "div.itemIntroText", Fallback: "div.itemFullText"},
			),
			DateSelectors: []string{"span.itemDateCreated"},
			DomainAliases: []string{"sisanjuan.gob.ar"},
		},
		{
			ID:               "sanjuan8",
			Name:             "San Juan 8",
			ListingURLs:      []string{"https://www.sanjuan8.com/"},
			ListingSelectors: withListing(`article[class*="news-article"]`),
			BodyRules: withBody(
				ExtractRule{Kind: RuleCombineAll, Selector: "div.article-body"},
			),
			DomainAliases: []string{"sanjuan8.com"},
		},
		{
			ID:            "0264noticias",
			Name:          "0264 Noticias",
			ListingURLs:   []string{"https://www.0264noticias.com.ar/"},
			DomainAliases: []string{"0264noticias.com.ar"},
		},
		{
			ID:            "nuevodiario",
			Name:          "Nuevo Diario San Juan",
			ListingURLs:   []string{"https://www.nuevodiariosanjuan.com.ar/"},
			DomainAliases: []string{"nuevodiariosanjuan.com.ar"},
		},
		{
			ID:            "canal13",
			Name:          "Canal 13 San Juan",
			ListingURLs:   []string{"https://www.canal13sanjuan.com/"},
			DomainAliases: []string{"canal13sanjuan.com"},
		},
		{
			ID:            "elzonda",
			Name:          "Diario El Zonda",
			ListingURLs:   []string{"https://www.diarioelzondasj.com.ar/"},
			DomainAliases: []string{"diarioelzondasj.com.ar"},
		},
		{
			ID:            "telesol",
			Name:          "Telesol Diario",
			ListingURLs:   []string{"https://www.telesoldiario.com/"},
			DomainAliases: []string{"telesoldiario.com"},
		},
		{
			ID:            "huarpe",
			Name:          "Diario Huarpe",
			ListingURLs:   []string{"https://www.diariohuarpe.com/"},
			DomainAliases: []string{"diariohuarpe.com"},
		},
		{
			ID:            "ahorasanjuan",
			Name:          "Ahora San Juan",
			ListingURLs:   []string{"https://www.ahorasanjuan.com/"},
			DomainAliases: []string{"ahorasanjuan.com"},
		},
		{
			ID:            "elsoldesanjuan",
			Name:          "El Sol de San Juan",
			ListingURLs:   []string{"https://elsoldesanjuan.com.ar/"},
			URLPatterns:   append([]string{"/locales", "/politica", "/sociedad"}, DefaultURLPatterns...),
			DomainAliases: []string{"www.elsoldesanjuan.com.ar"},
		},
		{
			ID:            "lasnoticias",
			Name:          "Diario Las Noticias",
			ListingURLs:   []string{"https://diariolasnoticias.com/"},
			DomainAliases: []string{"www.diariolasnoticias.com"},
		},
		{
			ID:            "tiempodesanjuan",
			Name:          "Tiempo de San Juan",
			ListingURLs:   []string{"https://www.tiempodesanjuan.com/"},
			DomainAliases: []string{"tiempodesanjuan.com"},
		},
	}

	for i := range sources {
		sources[i].ApplyDefaults()
	}
	return sources
}
