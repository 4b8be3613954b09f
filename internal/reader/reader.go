// Package reader streams asset bytes from disk, optionally restricted to a
// byte range. Streams read in bounded chunks so large assets never sit in
// memory, and stop promptly when the request context is cancelled.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrRangeNotSatisfiable indicates a range whose start lies beyond the file
// or beyond its own end.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// chunkSize bounds a single read from disk.
const chunkSize = 64 << 10

// ByteRange is an inclusive byte range. End < 0 means open-ended.
type ByteRange struct {
	Start int64
	End   int64
}

// Stream reads one contiguous region of a file. It is not restartable; a
// fresh Open is required to re-read. Close releases the file handle and is
// safe on every exit path.
type Stream struct {
	file    *os.File
	section *io.SectionReader

	// Size is the total file size at open time.
	Size int64
	// Start is the first byte offset the stream yields.
	Start int64
	// Length is the number of bytes the stream yields.
	Length int64
}

// Open opens path for streaming. A nil rng yields the whole file. The file
// is re-stat'ed here: a file that vanished since resolution surfaces as
// fs.ErrNotExist, and range satisfiability is judged against the current
// size, not the one observed earlier.
func Open(path string, rng *ByteRange) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat asset: %w", err)
	}
	size := info.Size()

	start, length := int64(0), size
	if rng != nil {
		if rng.End >= 0 && rng.Start > rng.End {
			f.Close()
			return nil, fmt.Errorf("%w: start %d after end %d", ErrRangeNotSatisfiable, rng.Start, rng.End)
		}
		if rng.Start >= size {
			f.Close()
			return nil, fmt.Errorf("%w: start %d beyond size %d", ErrRangeNotSatisfiable, rng.Start, size)
		}
		start = rng.Start
		end := size - 1
		if rng.End >= 0 && rng.End < end {
			end = rng.End
		}
		length = end - start + 1
	}

	return &Stream{
		file:    f,
		section: io.NewSectionReader(f, start, length),
		Size:    size,
		Start:   start,
		Length:  length,
	}, nil
}

// Read implements io.Reader with bounded chunk reads.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) > chunkSize {
		p = p[:chunkSize]
	}
	return s.section.Read(p)
}

// Close releases the underlying file handle.
func (s *Stream) Close() error {
	return s.file.Close()
}

// Copy pulls chunks from the stream into w until the stream ends, w fails,
// or ctx is cancelled. Cancellation is checked between chunks so a closed
// connection stops the stream promptly.
func (s *Stream) Copy(ctx context.Context, w io.Writer) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := s.section.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("read asset: %w", err)
		}
	}
}
