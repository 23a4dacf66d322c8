package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestDateExtractorSources(t *testing.T) {
	d := NewDateExtractor(testLogger)

	tests := []struct {
		name      string
		page      string
		url       string
		selectors []string
		want      string // 2006-01-02, empty for nil
	}{
		{
			name: "json-ld graph prefers datePublished",
			page: `<script type="application/ld+json">{"@graph":[{"@type":"WebPage","dateModified":"2025-12-30T08:00:00Z"},{"@type":"NewsArticle","datePublished":"2025-12-28T10:00:00-03:00"}]}</script>`,
			url:  "https://a.com/nota",
			want: "2025-12-28",
		},
		{
			name: "json-ld dateModified as last resort",
			page: `<script type="application/ld+json">[{"@type":"NewsArticle","dateModified":"2024-05-02T10:00:00-03:00"}]</script>`,
			url:  "https://a.com/nota",
			want: "2024-05-02",
		},
		{
			name: "meta article:published_time",
			page: `<meta property="article:published_time" content="2025-11-03T21:15:00-03:00">`,
			url:  "https://a.com/nota",
			want: "2025-11-03",
		},
		{
			name: "time element",
			page: `<time datetime="2025-10-15">15 oct</time>`,
			url:  "https://a.com/nota",
			want: "2025-10-15",
		},
		{
			name: "spanish date class",
			page: `<span class="fecha">Domingo, 28 de Diciembre de 2025</span>`,
			url:  "https://a.com/nota",
			want: "2025-12-28",
		},
		{
			name:      "source specific selector first",
			page:      `<span class="itemDateCreated">3 de setiembre del 2024</span><span class="date">1 de enero de 2020</span>`,
			url:       "https://a.com/nota",
			selectors: []string{"span.itemDateCreated"},
			want:      "2024-09-03",
		},
		{
			name: "numeric day first",
			page: `<div class="post-date">04/11/2025 - 10:32</div>`,
			url:  "https://a.com/nota",
			want: "2025-11-04",
		},
		{
			name: "url path",
			page: `<p>sin fecha</p>`,
			url:  "https://a.com/2025/12/28/nota-importante",
			want: "2025-12-28",
		},
		{
			name: "url compact",
			page: `<p>sin fecha</p>`,
			url:  "https://a.com/policiales/robo-20251228-n1.html",
			want: "2025-12-28",
		},
		{
			name: "nothing",
			page: `<p>sin fecha</p>`,
			url:  "https://a.com/nota",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Extract(mustDoc(t, "<html><head></head><body>"+tt.page+"</body></html>"), tt.url, tt.selectors)
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected no date, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got nil", tt.want)
			}
			if s := got.Format("2006-01-02"); s != tt.want {
				t.Errorf("expected %s, got %s", tt.want, s)
			}
		})
	}
}

func TestParseTextRejectsImpossibleDates(t *testing.T) {
	d := NewDateExtractor(testLogger)

	for _, in := range []string{"31 de febrero de 2025", "1 de enero de 1990", "32/01/2025", "sin fecha", ""} {
		if got, ok := d.ParseText(in); ok {
			t.Errorf("ParseText(%q) = %v, expected failure", in, got)
		}
	}
}

func TestDateFromURLBounds(t *testing.T) {
	if _, ok := DateFromURL("https://a.com/1999/01/01/nota"); ok {
		t.Error("years before 2000 must be rejected")
	}
	got, ok := DateFromURL("https://a.com/nota/2025-03-09-lluvias")
	if !ok {
		t.Fatal("expected dashed date in URL")
	}
	if got.Month() != time.March || got.Day() != 9 {
		t.Errorf("unexpected date %v", got)
	}
}
