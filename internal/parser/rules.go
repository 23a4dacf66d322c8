package parser

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/textnorm"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// apply evaluates one rule and returns its text, or "" when it yields nothing.
// body selects the stricter paragraph requirements of article bodies.
func (a *Adapter) apply(doc *goquery.Document, resp *types.Response, rule config.ExtractRule, body bool) (string, error) {
	if rule.Kind == config.RuleReadability {
		return readabilityText(resp)
	}

	matches, err := query(doc, doc.Selection, rule.SelectorEngine(), rule.Selector)
	if err != nil {
		return "", err
	}
	if matches.Length() == 0 {
		return "", nil
	}

	switch rule.Kind {
	case config.RuleSingleBest:
		return a.nodeText(matches.First(), rule, body), nil

	case config.RuleCombineAll:
		var parts []string
		matches.Each(func(_ int, sel *goquery.Selection) {
			if t := a.segmentText(sel, rule); t != "" {
				parts = append(parts, t)
			}
		})
		return strings.Join(parts, " "), nil

	case config.RuleStructuralFallback:
		return a.structural(doc, matches.First(), rule, body)

	default:
		return "", fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

// nodeText returns the text of one matched node. Titles and subtitles use the
// node's own text. A body container contributes its paragraphs of at least the
// minimum length, and nothing unless enough of them qualify, so a teaser block
// never shadows a later rule.
func (a *Adapter) nodeText(sel *goquery.Selection, rule config.ExtractRule, body bool) string {
	if rule.Attr != "" {
		return attrText(sel, rule.Attr)
	}
	if !body {
		return textnorm.Collapse(sel.Text())
	}

	parts := a.paragraphs(sel, rule)
	if len(parts) < a.minParagraphs {
		return ""
	}
	return strings.Join(parts, " ")
}

// segmentText returns the text of one piece of a split body. Every matched
// node is part of the article, so a node without qualifying paragraphs
// contributes its own text.
func (a *Adapter) segmentText(sel *goquery.Selection, rule config.ExtractRule) string {
	if rule.Attr != "" {
		return attrText(sel, rule.Attr)
	}
	if parts := a.paragraphs(sel, rule); len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return textnorm.Collapse(sel.Text())
}

// paragraphs returns the node's paragraphs that reach the minimum length.
func (a *Adapter) paragraphs(sel *goquery.Selection, rule config.ExtractRule) []string {
	var parts []string
	sel.Find(rule.ParagraphSelector()).Each(func(_ int, p *goquery.Selection) {
		t := textnorm.Collapse(p.Text())
		if t != "" && utf8.RuneCountInString(t) >= a.minParagraph {
			parts = append(parts, t)
		}
	})
	return parts
}

// attrText reads an attribute. CMSs often escape meta content twice, so the
// value gets one more entity pass.
func attrText(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return textnorm.Collapse(html.UnescapeString(v))
}
