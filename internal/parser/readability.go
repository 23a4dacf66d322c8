package parser

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/go-shiori/go-readability"

	"github.com/IshaanNene/NewsGoat/internal/textnorm"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// readabilityText runs Mozilla's readability algorithm over the raw page.
// Sources list it explicitly as the last body rule.
func readabilityText(resp *types.Response) (string, error) {
	if len(resp.Body) == 0 {
		return "", nil
	}

	pageURL, err := url.Parse(resp.BaseURL())
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(resp.Body), pageURL)
	if err != nil {
		// Not a readable article; the rule yields nothing rather than failing the page.
		return "", nil
	}

	return textnorm.Collapse(article.TextContent), nil
}
