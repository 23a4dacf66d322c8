// Package urlnorm canonicalizes article URLs so the same article reached via
// different hosts, ports, tracking parameters or slashes compares equal.
package urlnorm

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/IshaanNene/NewsGoat/internal/types"
)

// Normalizer canonicalizes URLs for one source. It is safe for concurrent use.
type Normalizer struct {
	base      *url.URL
	canonical string          // canonical host of the source
	aliases   map[string]bool // hosts collapsed onto canonical
	exact     map[string]bool
	prefixes  []string
}

// New creates a Normalizer. base resolves relative links and defines the
// canonical host; aliases are collapsed onto it. trackingParams lists query
// keys to strip, with a trailing '*' acting as a prefix match.
func New(base string, aliases, trackingParams []string) (*Normalizer, error) {
	n := &Normalizer{
		aliases: make(map[string]bool, len(aliases)),
		exact:   make(map[string]bool, len(trackingParams)),
	}

	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: base %q: %v", types.ErrInvalidURL, base, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("%w: base %q is not absolute", types.ErrInvalidURL, base)
		}
		n.base = u
		n.canonical = hostKey(u)
	}

	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && a != n.canonical {
			n.aliases[a] = true
		}
	}

	for _, p := range trackingParams {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "":
		case strings.HasSuffix(p, "*"):
			n.prefixes = append(n.prefixes, strings.TrimSuffix(p, "*"))
		default:
			n.exact[p] = true
		}
	}

	return n, nil
}

// Normalize returns the canonical form of raw. Steps run in a fixed order:
// resolve against the base, lowercase scheme and host, drop default ports,
// collapse alias hosts, strip tracking parameters, drop the fragment, sort
// the query, strip the trailing slash (except root). Normalize is idempotent.
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", types.ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", types.ErrInvalidURL, raw, err)
	}

	if !u.IsAbs() {
		if n.base == nil {
			return "", fmt.Errorf("%w: relative URL %q without base", types.ErrInvalidURL, raw)
		}
		u = n.base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", types.ErrInvalidURL, u.Scheme)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: no host in %q", types.ErrInvalidURL, raw)
	}

	// Only the port suffix goes; IPv6 brackets stay.
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}

	if n.aliases[hostKey(u)] {
		u.Host = n.canonical
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	u.RawQuery = n.cleanQuery(u.RawQuery)
	u.ForceQuery = false

	// Trim literal slashes only: an escaped %2F at the end is part of the name.
	if p := u.EscapedPath(); p != "/" && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
		path, err := url.PathUnescape(p)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", types.ErrInvalidURL, raw, err)
		}
		u.Path, u.RawPath = path, p
	}
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), nil
}

// MustNormalize is Normalize for callers that fall back to the raw URL.
func (n *Normalizer) MustNormalize(raw string) string {
	out, err := n.Normalize(raw)
	if err != nil {
		return raw
	}
	return out
}

// SameSite reports whether raw points at the canonical host or an alias.
func (n *Normalizer) SameSite(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !u.IsAbs() {
		return n.base != nil
	}
	u.Host = strings.ToLower(u.Host)
	key := hostKey(u)
	return key == n.canonical || n.aliases[key]
}

// cleanQuery drops tracking parameters and sorts what is left by key, then value.
func (n *Normalizer) cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if n.isTracking(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sorted []string
	for _, k := range keys {
		vals := params[k]
		sort.Strings(vals)
		for _, v := range vals {
			sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(sorted, "&")
}

func (n *Normalizer) isTracking(key string) bool {
	key = strings.ToLower(key)
	if n.exact[key] {
		return true
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// hostKey is the host without a default port.
func hostKey(u *url.URL) string {
	host, port := strings.ToLower(u.Hostname()), u.Port()
	if port == "" || (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}
