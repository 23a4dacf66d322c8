package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDObjects parses every <script type="application/ld+json"> block and
// flattens arrays and @graph containers into a single list of objects.
func jsonLDObjects(doc *goquery.Document) []map[string]any {
	var objects []map[string]any

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		objects = append(objects, flattenJSONLD(data)...)
	})

	return objects
}

func flattenJSONLD(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		out := []map[string]any{v}
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenJSONLD(graph)...)
		}
		return out
	case []any:
		var out []map[string]any
		for _, item := range v {
			out = append(out, flattenJSONLD(item)...)
		}
		return out
	default:
		return nil
	}
}

// metaContent returns the content of the first meta tag whose property, name
// or itemprop equals key.
func metaContent(doc *goquery.Document, key string) string {
	sel := doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"], meta[itemprop="` + key + `"]`).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}
