package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsGoat/internal/config"
)

// structural returns the text of first. When first is empty it looks for the
// rule's Fallback container among first's siblings, then inside its parent.
// Without a Fallback the siblings' own text is used.
func (a *Adapter) structural(doc *goquery.Document, first *goquery.Selection, rule config.ExtractRule, body bool) (string, error) {
	if t := a.nodeText(first, rule, body); t != "" {
		return t, nil
	}

	siblings := first.Siblings()

	if rule.Fallback == "" {
		var parts []string
		siblings.Each(func(_ int, sib *goquery.Selection) {
			if t := a.segmentText(sib, rule); t != "" {
				parts = append(parts, t)
			}
		})
		return strings.Join(parts, " "), nil
	}

	for _, scope := range []*goquery.Selection{siblings, first.Parent()} {
		candidates, err := queryIncluding(doc, scope, rule.SelectorEngine(), rule.Fallback)
		if err != nil {
			return "", err
		}
		text := ""
		candidates.Not("script, style").EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if c.IsSelection(first) {
				return true
			}
			text = a.nodeText(c, rule, body)
			return text == ""
		})
		if text != "" {
			return text, nil
		}
	}

	return "", nil
}
