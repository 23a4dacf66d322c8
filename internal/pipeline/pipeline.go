package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
	"github.com/IshaanNene/NewsGoat/internal/urlnorm"
	"github.com/IshaanNene/NewsGoat/internal/validate"
)

// Middleware processes an article and returns the (possibly modified) article.
// Return nil to drop the article from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an article. Return nil to drop it.
	Process(a *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// ForSource builds the standard chain for one source: canonical URL, text
// cleanup, validation, content hash. Hashing runs last so it sees the final body.
func ForSource(src *config.SourceConfig, norm *urlnorm.Normalizer, v *validate.Validator, opts config.NormalizeConfig, logger *slog.Logger) *Pipeline {
	p := New(logger.With("source", src.ID))
	p.Use(NewURLNormalizeMiddleware(norm))
	p.Use(&TextCleanMiddleware{StripAccents: opts.StripAccents})
	p.Use(NewValidateMiddleware(v, src.MinContentLength))
	p.Use(&ContentHashMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order. Errors come back
// as *types.PipelineError; a rejection is still reachable with errors.As.
func (p *Pipeline) Process(a *types.Article) (*types.Article, error) {
	current := a

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:   mw.Name(),
				Article: current,
				Err:     err,
			}
		}
		if result == nil {
			p.logger.Debug("article dropped", "stage", mw.Name(), "url", a.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}
