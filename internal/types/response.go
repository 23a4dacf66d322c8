package types

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response represents the result of fetching a request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the response body, already decompressed and decoded to UTF-8.
	Body []byte

	// Request is a reference to the original request.
	Request *Request

	// ContentType is the MIME type of the response.
	ContentType string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when this response was received.
	FetchedAt time.Time

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

// NewResponse creates a Response from an http.Response.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	finalURL := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewHTMLResponse builds a 200 response around an in-memory HTML page.
// Useful for fixtures and for content obtained outside the HTTP fetcher.
func NewHTMLResponse(rawURL string, body string) (*Response, error) {
	req, err := NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode:  http.StatusOK,
		Headers:     make(http.Header),
		Body:        []byte(body),
		Request:     req,
		ContentType: "text/html; charset=utf-8",
		FinalURL:    rawURL,
		FetchedAt:   time.Now(),
	}, nil
}

// Document returns a parsed goquery document, lazily initializing it.
func (r *Response) Document() (*goquery.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	})
	return r.doc, r.docErr
}

// BaseURL returns the URL relative links on the page resolve against.
func (r *Response) BaseURL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.Request.URLString()
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsHTML reports whether the response looks like an HTML document.
func (r *Response) IsHTML() bool {
	if r.ContentType == "" {
		return true
	}
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}
