package http

import (
	"net/http"
	"strings"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
)

// ParseLinks parses RFC 5988 Link header values into a rel -> URL map. A
// link with several space separated relations is registered under each.
// Malformed entries are skipped.
func ParseLinks(values []string) map[string]string {
	links := make(map[string]string)

	for _, value := range values {
		for _, entry := range splitLinks(value) {
			target, params, ok := parseLink(entry)
			if !ok {
				continue
			}

			for _, rel := range strings.Fields(params["rel"]) {
				if _, exists := links[rel]; !exists {
					links[rel] = target
				}
			}
		}
	}

	return links
}

// NextLink returns the rel="next" target of the Link headers, or "".
func NextLink(headers http.Header) string {
	if headers == nil {
		return ""
	}

	return ParseLinks(headers.Values(constants.HeaderLink))["next"]
}

// splitLinks splits on commas outside angle brackets and quotes.
func splitLinks(value string) []string {
	var (
		entries  []string
		start    int
		inURL    bool
		inQuotes bool
	)

	for i := range len(value) {
		switch value[i] {
		case '<':
			if !inQuotes {
				inURL = true
			}
		case '>':
			if !inQuotes {
				inURL = false
			}
		case '"':
			if !inURL {
				inQuotes = !inQuotes
			}
		case ',':
			if !inURL && !inQuotes {
				entries = append(entries, value[start:i])
				start = i + 1
			}
		}
	}

	return append(entries, value[start:])
}

func parseLink(entry string) (string, map[string]string, bool) {
	entry = strings.TrimSpace(entry)
	if !strings.HasPrefix(entry, "<") {
		return "", nil, false
	}

	end := strings.IndexByte(entry, '>')
	if end < 0 {
		return "", nil, false
	}

	target := strings.TrimSpace(entry[1:end])
	params := make(map[string]string)

	for _, param := range strings.Split(entry[end+1:], ";") {
		name, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found {
			continue
		}

		params[strings.ToLower(strings.TrimSpace(name))] = strings.ToLower(strings.Trim(strings.TrimSpace(value), `"`))
	}

	return target, params, target != ""
}
