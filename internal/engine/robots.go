package engine

import (
	"net/url"
	"strings"
)

// robotsRules holds the allow/disallow rules of one site's robots.txt that
// apply to us (the "*" group or a group naming newsgoat).
type robotsRules struct {
	disallowed []string
	allowed    []string
}

// allows reports whether rawURL may be fetched. Allow rules win over
// disallow rules, as most crawlers treat them. A nil rule set allows all.
func (r *robotsRules) allows(rawURL string) bool {
	if r == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	for _, pattern := range r.allowed {
		if matchRobotsPattern(pattern, path) {
			return true
		}
	}
	for _, pattern := range r.disallowed {
		if matchRobotsPattern(pattern, path) {
			return false
		}
	}
	return true
}

// parseRobotsTxt parses robots.txt content.
func parseRobotsTxt(content string) *robotsRules {
	rules := &robotsRules{}
	inOurGroup := false
	lastWasAgent := false

	for _, line := range strings.Split(content, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			agent := strings.ToLower(value)
			match := agent == "*" || strings.Contains(agent, "newsgoat")
			// consecutive user-agent lines share one group
			if lastWasAgent {
				inOurGroup = inOurGroup || match
			} else {
				inOurGroup = match
			}
			lastWasAgent = true
			continue
		case "disallow":
			if inOurGroup && value != "" {
				rules.disallowed = append(rules.disallowed, value)
			}
		case "allow":
			if inOurGroup && value != "" {
				rules.allowed = append(rules.allowed, value)
			}
		}
		lastWasAgent = false
	}

	return rules
}

// matchRobotsPattern checks if a URL path matches a robots.txt pattern.
// Supports * (any sequence) and $ (end of URL) wildcards.
func matchRobotsPattern(pattern, path string) bool {
	if pattern == "" {
		return false
	}

	anchored := strings.HasSuffix(pattern, "$")
	pattern = strings.TrimSuffix(pattern, "$")

	if !strings.Contains(pattern, "*") {
		if anchored {
			return path == pattern
		}
		return strings.HasPrefix(path, pattern)
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	pos := len(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}

	if anchored {
		last := parts[len(parts)-1]
		return last == "" || strings.HasSuffix(path, last)
	}
	return true
}
