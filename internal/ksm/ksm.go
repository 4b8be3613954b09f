// Package ksm parses the KSM production file formats: .art article
// parameter files and .dat measurement files. Both are ISO-8859-10 encoded
// line-oriented text.
package ksm

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrMissingField indicates a required header line is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrMalformedEntry indicates a line that does not match the format.
	ErrMalformedEntry = errors.New("malformed entry")
)

// maxLineBytes bounds a single decoded line; the production files carry
// short lines, anything past this is garbage input.
const maxLineBytes = 1 << 20

// readLines opens path and decodes its ISO-8859-10 content into UTF-8 lines.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(transform.NewReader(f, charmap.ISO8859_10.NewDecoder()))
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
