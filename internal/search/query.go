package search

import (
	"regexp"
	"strings"
)

// A trailing "(YYYY)" or whitespace followed by YYYY marks a disambiguation year.
var trailingYearPattern = regexp.MustCompile(`^(.*?)(?:\s*\((\d{4})\)|\s+(\d{4}))$`)

type ParsedQuery struct {
	Original string
	Title    string
	Year     string
}

// ParseQuery splits a raw query into the title sent to the catalog and an
// optional year used for scoring.
func ParseQuery(raw string) (ParsedQuery, error) {
	original := strings.TrimSpace(raw)
	parsed := ParsedQuery{Original: original, Title: original}
	if original == "" {
		return parsed, ErrInvalidQuery
	}

	if match := trailingYearPattern.FindStringSubmatch(original); match != nil {
		parsed.Title = strings.TrimSpace(match[1])
		parsed.Year = match[2]
		if parsed.Year == "" {
			parsed.Year = match[3]
		}
	}
	if parsed.Title == "" {
		return parsed, ErrInvalidQuery
	}
	return parsed, nil
}
