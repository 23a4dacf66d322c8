package parser

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/IshaanNene/NewsGoat/internal/textnorm"
)

// Argentina does not observe DST, so a fixed zone avoids depending on tzdata.
var argentina = time.FixedZone("ART", -3*60*60)

var (
	jsonLDDateKeys = []string{"datePublished", "dateCreated", "dateModified"}

	metaDateKeys = []string{
		"article:published_time",
		"og:published_time",
		"article:published",
		"date",
		"pubdate",
		"publishdate",
		"DC.date.issued",
		"datePublished",
	}

	dateClassSelectors = []string{
		".itemDateCreated", ".entry-date", ".post-date", ".td-post-date",
		".jeg_meta_date", ".date", ".fecha", ".published", ".article-date",
		".news-date", ".nota-fecha",
	}

	spanishMonths = map[string]time.Month{
		"enero": time.January, "febrero": time.February, "marzo": time.March,
		"abril": time.April, "mayo": time.May, "junio": time.June,
		"julio": time.July, "agosto": time.August, "septiembre": time.September,
		"setiembre": time.September, "octubre": time.October,
		"noviembre": time.November, "diciembre": time.December,
	}

	spanishDateRe = regexp.MustCompile(`(\d{1,2})\s+de\s+([a-z]+)\s+(?:de(?:l)?\s+)?(\d{4})`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})\b`)

	urlDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})(?:/|$)`),
		regexp.MustCompile(`/(\d{4})-(\d{2})-(\d{2})`),
		regexp.MustCompile(`-(\d{4})(\d{2})(\d{2})-`),
		regexp.MustCompile(`(\d{4})(\d{2})(\d{2})\.html`),
	}
)

const (
	minYear = 2000
	maxYear = 2100
)

// DateExtractor finds an article's publication date. Sources are tried from
// most to least reliable: JSON-LD, meta tags, <time datetime>, date-looking
// elements, and finally the URL itself.
type DateExtractor struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewDateExtractor creates a DateExtractor that interprets zone-less
// timestamps as Argentina time.
func NewDateExtractor(logger *slog.Logger) *DateExtractor {
	return &DateExtractor{
		loc:    argentina,
		logger: logger.With("component", "date_extractor"),
	}
}

// Extract returns the publication date, or nil when none is found.
// selectors are source-specific date elements checked before the generic ones.
func (d *DateExtractor) Extract(doc *goquery.Document, pageURL string, selectors []string) *time.Time {
	objects := jsonLDObjects(doc)
	for _, key := range jsonLDDateKeys {
		for _, obj := range objects {
			if s, ok := obj[key].(string); ok {
				if t, ok := d.parseTimestamp(s); ok {
					return &t
				}
			}
		}
	}

	for _, key := range metaDateKeys {
		if t, ok := d.parseTimestamp(metaContent(doc, key)); ok {
			return &t
		}
	}

	var found *time.Time
	doc.Find("time[datetime]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		v, _ := sel.Attr("datetime")
		if t, ok := d.parseTimestamp(v); ok {
			found = &t
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	for _, selector := range append(append([]string(nil), selectors...), dateClassSelectors...) {
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if v, ok := sel.Attr("datetime"); ok {
				text = v
			}
			if t, ok := d.ParseText(text); ok {
				found = &t
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}

	if t, ok := DateFromURL(pageURL); ok {
		return &t
	}

	d.logger.Debug("no publication date", "url", pageURL)
	return nil
}

// ParseText parses free text such as "Domingo, 28 de diciembre de 2025",
// "28/12/2025" or any machine timestamp.
func (d *DateExtractor) ParseText(text string) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	lower := strings.ToLower(textnorm.StripAccents(text))

	// A recognizable written date is final: an impossible one is rejected
	// rather than handed to the lenient timestamp parser.
	if m := spanishDateRe.FindStringSubmatch(lower); m != nil {
		if month, ok := spanishMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return makeDate(year, month, day, d.loc)
		}
	}

	// Day first, as written in Argentina.
	if m := numericDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return makeDate(year, time.Month(month), day, d.loc)
	}

	return d.parseTimestamp(text)
}

// parseTimestamp parses machine-readable timestamps (ISO 8601, RFC 1123, ...).
func (d *DateExtractor) parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, d.loc)
	if err != nil {
		return time.Time{}, false
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, false
	}
	return t, true
}

// DateFromURL extracts a date embedded in an article URL, e.g. /2025/12/28/.
func DateFromURL(rawURL string) (time.Time, bool) {
	for _, re := range urlDatePatterns {
		m := re.FindStringSubmatch(rawURL)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, time.Month(month), day, argentina); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// makeDate builds a calendar date and rejects out-of-range components
// instead of letting time.Date normalize them.
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if year < minYear || year > maxYear || month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
