package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrSourceTimeout = errors.New("source timed out")
	ErrNoListing     = errors.New("no listing page could be fetched")
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrCircuitOpen   = errors.New("circuit open for host")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur during extraction.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError reports an invalid source or application configuration.
// It is the only error that aborts a run, and it is raised before any fetch.
type ConfigError struct {
	Source string
	Field  string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config error (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config error for source %q (%s): %v", e.Source, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Rejection reason codes.
const (
	ReasonMissingTitle    = "missing_title"
	ReasonEmptyBody       = "empty_body"
	ReasonTooShort        = "too_short"
	ReasonBoilerplateOnly = "boilerplate_only"
	ReasonOffTopic        = "off_topic"
	ReasonInvalidURL      = "invalid_url"
)

// Rejection is returned by the pipeline when a candidate article fails
// validation. It is an expected outcome and is tallied, not logged as an error.
type Rejection struct {
	URL    string
	Reason string
}

func (e *Rejection) Error() string {
	return fmt.Sprintf("article %s rejected: %s", e.URL, e.Reason)
}

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the processing pipeline.
type PipelineError struct {
	Stage   string
	Article *Article
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// RejectionReason returns the reason code if err is (or wraps) a Rejection.
func RejectionReason(err error) (string, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
