package parser

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/NewsGoat/internal/config"
)

// query evaluates expr with the given engine inside scope and returns the
// matches as a selection of doc, in document order. XPath results are mapped
// back onto goquery so every rule kind can traverse them the same way.
func query(doc *goquery.Document, scope *goquery.Selection, engine, expr string) (*goquery.Selection, error) {
	switch engine {
	case "", config.EngineCSS:
		return scope.Find(expr), nil

	case config.EngineXPath:
		var found []*html.Node
		for _, root := range scope.Nodes {
			nodes, err := htmlquery.QueryAll(root, expr)
			if err != nil {
				return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
			}
			for _, n := range nodes {
				if n.Type == html.ElementNode {
					found = append(found, n)
				}
			}
		}
		return doc.FindNodes(found...), nil

	default:
		return nil, fmt.Errorf("unknown selector engine %q", engine)
	}
}

// queryIncluding is query that also keeps scope nodes which match expr themselves.
func queryIncluding(doc *goquery.Document, scope *goquery.Selection, engine, expr string) (*goquery.Selection, error) {
	inner, err := query(doc, scope, engine, expr)
	if err != nil {
		return nil, err
	}

	switch engine {
	case "", config.EngineCSS:
		return scope.Filter(expr).AddSelection(inner), nil
	default:
		self, err := query(doc, doc.Selection, engine, expr)
		if err != nil {
			return nil, err
		}
		return scope.FilterSelection(self).AddSelection(inner), nil
	}
}
