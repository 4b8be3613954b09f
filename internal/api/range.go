package api

import (
	"strconv"
	"strings"

	"github.com/ksmlabs/ksmserver/internal/reader"
)

// ParseRange interprets an HTTP Range header against the asset size.
// A nil range with nil error means "serve the full body": absent header,
// non-bytes unit, multiple ranges, or a malformed spec (RFC 9110 says
// malformed Range headers are ignored). An unsatisfiable range returns
// reader.ErrRangeNotSatisfiable.
func ParseRange(header string, size int64) (*reader.ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, nil
	}
	if strings.Contains(spec, ",") {
		return nil, nil
	}
	spec = strings.TrimSpace(spec)

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, nil
	}

	if startStr == "" {
		// Suffix form: last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, nil
		}
		if n <= 0 || size == 0 {
			return nil, reader.ErrRangeNotSatisfiable
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		return &reader.ByteRange{Start: start, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, nil
	}
	end := int64(-1)
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return nil, nil
		}
		if start > end {
			return nil, reader.ErrRangeNotSatisfiable
		}
	}
	if start >= size {
		return nil, reader.ErrRangeNotSatisfiable
	}
	return &reader.ByteRange{Start: start, End: end}, nil
}
