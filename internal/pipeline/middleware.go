package pipeline

import (
	"github.com/IshaanNene/NewsGoat/internal/textnorm"
	"github.com/IshaanNene/NewsGoat/internal/types"
	"github.com/IshaanNene/NewsGoat/internal/urlnorm"
	"github.com/IshaanNene/NewsGoat/internal/validate"
)

// URLNormalizeMiddleware replaces the page URL with its canonical form.
type URLNormalizeMiddleware struct {
	norm *urlnorm.Normalizer
}

func NewURLNormalizeMiddleware(norm *urlnorm.Normalizer) *URLNormalizeMiddleware {
	return &URLNormalizeMiddleware{norm: norm}
}

func (m *URLNormalizeMiddleware) Name() string { return "url_normalize" }

func (m *URLNormalizeMiddleware) Process(a *types.Article) (*types.Article, error) {
	canonical, err := m.norm.Normalize(a.URL)
	if err != nil {
		return nil, &types.Rejection{URL: a.URL, Reason: types.ReasonInvalidURL}
	}
	a.URL = canonical
	return a, nil
}

// TextCleanMiddleware composes to NFC and collapses whitespace in every text
// field. Accent stripping is opt-in
// because it changes content hashes.
type TextCleanMiddleware struct {
	StripAccents bool
}

func (m *TextCleanMiddleware) Name() string { return "text_clean" }

func (m *TextCleanMiddleware) Process(a *types.Article) (*types.Article, error) {
	for _, field := range []*string{&a.Title, &a.Subtitle, &a.Body} {
		s := textnorm.Clean(*field)
		if m.StripAccents {
			s = textnorm.StripAccents(s)
		}
		*field = s
	}
	if a.Subtitle != "" && a.Subtitle == a.Title {
		a.Subtitle = ""
	}
	return a, nil
}

// ValidateMiddleware rejects articles the validator refuses.
type ValidateMiddleware struct {
	validator *validate.Validator
	sourceMin int
}

func NewValidateMiddleware(v *validate.Validator, sourceMin int) *ValidateMiddleware {
	return &ValidateMiddleware{validator: v, sourceMin: sourceMin}
}

func (m *ValidateMiddleware) Name() string { return "validate" }

func (m *ValidateMiddleware) Process(a *types.Article) (*types.Article, error) {
	if err := m.validator.Validate(a, m.sourceMin).Err(a.URL); err != nil {
		return nil, err
	}
	return a, nil
}

// ContentHashMiddleware stamps the normalized-body hash used for dedup.
type ContentHashMiddleware struct{}

func (m *ContentHashMiddleware) Name() string { return "content_hash" }

func (m *ContentHashMiddleware) Process(a *types.Article) (*types.Article, error) {
	a.ContentHash = types.ContentHash(a.Body)
	return a, nil
}
