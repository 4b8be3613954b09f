// Package pool maps untrusted asset keys to validated filesystem paths
// inside one of the two configured pool roots.
package pool

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidKey indicates a key that is empty or contains a NUL byte.
	ErrInvalidKey = errors.New("invalid asset key")
	// ErrPathEscape indicates a key whose resolution would leave the pool root.
	ErrPathEscape = errors.New("key escapes pool root")
	// ErrNotFound indicates the key does not name an existing file.
	ErrNotFound = errors.New("asset not found")
	// ErrPoolUnavailable indicates the pool root was invalid at startup.
	ErrPoolUnavailable = errors.New("pool unavailable")
	// ErrUnknownPool indicates a pool identifier outside {art, dat}.
	ErrUnknownPool = errors.New("unknown pool")
)

// ID identifies one of the two asset pools.
type ID string

const (
	// Art is the pool of article parameter assets.
	Art ID = "art"
	// Dat is the pool of measurement data assets.
	Dat ID = "dat"
)

// ParseID validates a caller-supplied pool identifier.
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case Art:
		return Art, nil
	case Dat:
		return Dat, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPool, s)
	}
}

// Pool binds a pool identifier to its root directory. The root is
// canonicalized once at construction and immutable afterwards.
type Pool struct {
	id        ID
	root      string
	available bool
}

// New builds a Pool over the given root directory. If the root does not
// exist or is not a directory the pool is marked unavailable and every
// Resolve call against it fails with ErrPoolUnavailable.
func New(id ID, root string) *Pool {
	abs, err := filepath.Abs(root)
	if err != nil {
		return &Pool{id: id}
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return &Pool{id: id}
	}
	info, err := os.Stat(canonical)
	if err != nil || !info.IsDir() {
		return &Pool{id: id}
	}
	return &Pool{id: id, root: canonical, available: true}
}

// ID returns the pool identifier.
func (p *Pool) ID() ID { return p.id }

// Root returns the canonical root directory, or "" if unavailable.
func (p *Pool) Root() string { return p.root }

// Available reports whether the pool root was valid at startup.
func (p *Pool) Available() bool { return p.available }

// Resolve maps a key to a canonical path strictly inside the pool root and
// stats it. It re-validates on every call; resolutions are never cached.
func (p *Pool) Resolve(key string) (string, fs.FileInfo, error) {
	if !p.available {
		return "", nil, fmt.Errorf("%s: %w", p.id, ErrPoolUnavailable)
	}
	if key == "" || strings.ContainsRune(key, 0) {
		return "", nil, ErrInvalidKey
	}

	// Cheap pre-filter before touching the filesystem: absolute keys and
	// parent segments are never legitimate, whatever they would resolve to.
	if key[0] == '/' || key[0] == '\\' {
		return "", nil, fmt.Errorf("%w: %q", ErrPathEscape, key)
	}
	for _, seg := range strings.FieldsFunc(key, isSeparator) {
		if seg == ".." {
			return "", nil, fmt.Errorf("%w: %q", ErrPathEscape, key)
		}
	}

	joined := filepath.Join(p.root, filepath.FromSlash(key))
	canonical, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return "", nil, fmt.Errorf("canonicalize %q: %w", key, err)
	}

	// Symlinks inside the root may point anywhere; the canonical result must
	// still sit strictly below the root. The root itself is a directory, not
	// an asset, so equality is rejected too.
	if !strings.HasPrefix(canonical, p.root+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("%w: %q", ErrPathEscape, key)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return "", nil, fmt.Errorf("stat %q: %w", key, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %q is a directory", ErrNotFound, key)
	}
	return canonical, info, nil
}

func isSeparator(r rune) bool { return r == '/' || r == '\\' }

// Set groups the two pools for lookup by identifier.
type Set struct {
	art *Pool
	dat *Pool
}

// NewSet builds a Set from the art and dat pools.
func NewSet(art, dat *Pool) *Set {
	return &Set{art: art, dat: dat}
}

// Get returns the pool for id.
func (s *Set) Get(id ID) (*Pool, error) {
	switch id {
	case Art:
		return s.art, nil
	case Dat:
		return s.dat, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, id)
	}
}
