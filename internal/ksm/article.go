package ksm

import (
	"fmt"
	"strings"
)

// ParseArticleFile parses a .art parameter file. The first line is the
// program name (stored under "pgm_name"), the second line must be the
// literal "None", and every remaining non-empty line is a "key = value"
// pair.
func ParseArticleFile(path string) (map[string]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return parseArticleLines(lines)
}

func parseArticleLines(lines []string) (map[string]string, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: pgm_name", ErrMissingField)
	}
	params := map[string]string{
		"pgm_name": strings.TrimSpace(lines[0]),
	}

	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: None", ErrMissingField)
	}
	if strings.TrimSpace(lines[1]) != "None" {
		return nil, fmt.Errorf("%w: None", ErrMissingField)
	}

	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " = ")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedEntry, line)
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params, nil
}
