package api

import (
	"errors"
	"testing"

	"github.com/ksmlabs/ksmserver/internal/reader"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
		want   *reader.ByteRange
	}{
		{"absent", "", 100, nil},
		{"non-bytes unit", "items=0-5", 100, nil},
		{"multiple ranges ignored", "bytes=0-1,5-9", 100, nil},
		{"malformed ignored", "bytes=abc", 100, nil},
		{"malformed start ignored", "bytes=x-5", 100, nil},
		{"first byte", "bytes=0-0", 100, &reader.ByteRange{Start: 0, End: 0}},
		{"interior", "bytes=10-20", 100, &reader.ByteRange{Start: 10, End: 20}},
		{"open ended", "bytes=42-", 100, &reader.ByteRange{Start: 42, End: -1}},
		{"suffix", "bytes=-10", 100, &reader.ByteRange{Start: 90, End: 99}},
		{"suffix larger than file", "bytes=-500", 100, &reader.ByteRange{Start: 0, End: 99}},
		{"end clamped later", "bytes=90-200", 100, &reader.ByteRange{Start: 90, End: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)
			if err != nil {
				t.Fatalf("ParseRange error = %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ParseRange = %+v, want %+v", got, tt.want)
			}
			if got != nil && (got.Start != tt.want.Start || got.End != tt.want.End) {
				t.Errorf("ParseRange = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRange_Unsatisfiable(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
	}{
		{"start at size", "bytes=100-", 100},
		{"start beyond size", "bytes=500-600", 100},
		{"start after end", "bytes=9-3", 100},
		{"zero suffix", "bytes=-0", 100},
		{"any range on empty file", "bytes=0-0", 0},
		{"suffix on empty file", "bytes=-5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRange(tt.header, tt.size)
			if !errors.Is(err, reader.ErrRangeNotSatisfiable) {
				t.Errorf("ParseRange error = %v, want ErrRangeNotSatisfiable", err)
			}
		})
	}
}
