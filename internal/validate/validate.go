// Package validate decides whether a cleaned candidate article is kept.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/textnorm"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// Verdict is the outcome of validating one article.
type Verdict struct {
	OK     bool
	Reason string
}

// Accept is the verdict for a valid article.
var Accept = Verdict{OK: true}

func reject(reason string) Verdict { return Verdict{Reason: reason} }

// Err returns nil for an accepted verdict and a *types.Rejection otherwise.
func (v Verdict) Err(url string) error {
	if v.OK {
		return nil
	}
	return &types.Rejection{URL: url, Reason: v.Reason}
}

// Validator applies the same thresholds to every source. It never modifies
// the article and is safe for concurrent use.
type Validator struct {
	minBody     int
	boilerplate []*regexp.Regexp
	keywords    []string
}

// New compiles the boilerplate patterns and folds the keywords.
func New(cfg config.ValidationConfig) (*Validator, error) {
	v := &Validator{minBody: cfg.MinBodyLength}

	for _, p := range cfg.BoilerplatePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &types.ConfigError{Field: "validation.boilerplate_patterns", Err: fmt.Errorf("%q: %w", p, err)}
		}
		v.boilerplate = append(v.boilerplate, re)
	}
	for _, k := range cfg.Keywords {
		if k = textnorm.Fold(k); k != "" {
			v.keywords = append(v.keywords, k)
		}
	}
	return v, nil
}

// Validate checks a in a fixed order and reports the first failure.
// sourceMin is the source's own minimum body length; the stricter of it and
// the global minimum applies.
func (v *Validator) Validate(a *types.Article, sourceMin int) Verdict {
	if strings.TrimSpace(a.Title) == "" {
		return reject(types.ReasonMissingTitle)
	}

	body := strings.TrimSpace(a.Body)
	if body == "" {
		return reject(types.ReasonEmptyBody)
	}

	if utf8.RuneCountInString(body) < max(v.minBody, sourceMin) {
		return reject(types.ReasonTooShort)
	}

	if v.boilerplateOnly(body) {
		return reject(types.ReasonBoilerplateOnly)
	}

	if len(v.keywords) > 0 && !v.onTopic(a) {
		return reject(types.ReasonOffTopic)
	}

	return Accept
}

// boilerplateOnly reports whether nothing but punctuation and spaces is left
// once every boilerplate match is removed from body.
func (v *Validator) boilerplateOnly(body string) bool {
	if len(v.boilerplate) == 0 {
		return false
	}
	rest := body
	matched := false
	for _, re := range v.boilerplate {
		if re.MatchString(rest) {
			matched = true
			rest = re.ReplaceAllString(rest, " ")
		}
	}
	if !matched {
		return false
	}
	return strings.IndexFunc(rest, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0
}

func (v *Validator) onTopic(a *types.Article) bool {
	text := textnorm.Fold(a.Title + " " + a.Subtitle + " " + a.Body)
	for _, k := range v.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
