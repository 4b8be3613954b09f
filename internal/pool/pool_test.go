package pool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestPool(t *testing.T) (*Pool, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "logo.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "nested", "inner.bin"), []byte("inner"), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(Art, root), root
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("art"); err != nil || id != Art {
		t.Errorf("ParseID(art) = %v, %v", id, err)
	}
	if id, err := ParseID("dat"); err != nil || id != Dat {
		t.Errorf("ParseID(dat) = %v, %v", id, err)
	}
	if _, err := ParseID("video"); !errors.Is(err, ErrUnknownPool) {
		t.Errorf("ParseID(video) error = %v, want ErrUnknownPool", err)
	}
}

func TestNew_MissingRoot(t *testing.T) {
	p := New(Dat, filepath.Join(t.TempDir(), "does-not-exist"))
	if p.Available() {
		t.Fatal("pool over missing root reported available")
	}
	if _, _, err := p.Resolve("anything"); !errors.Is(err, ErrPoolUnavailable) {
		t.Errorf("Resolve error = %v, want ErrPoolUnavailable", err)
	}
}

func TestNew_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if New(Art, root).Available() {
		t.Error("pool over a regular file reported available")
	}
}

func TestResolve_ValidKeys(t *testing.T) {
	p, root := newTestPool(t)

	path, info, err := p.Resolve("logo.png")
	if err != nil {
		t.Fatalf("Resolve(logo.png) error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, "logo.png"))
	if path != want {
		t.Errorf("resolved path = %q, want %q", path, want)
	}
	if info.Size() != int64(len("png-bytes")) {
		t.Errorf("size = %d, want %d", info.Size(), len("png-bytes"))
	}

	if _, _, err := p.Resolve("nested/inner.bin"); err != nil {
		t.Errorf("Resolve(nested/inner.bin) error = %v", err)
	}
}

func TestResolve_InvalidKeys(t *testing.T) {
	p, _ := newTestPool(t)

	for _, key := range []string{"", "logo\x00.png"} {
		if _, _, err := p.Resolve(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestResolve_PathEscape(t *testing.T) {
	p, _ := newTestPool(t)

	keys := []string{
		"../secret",
		"..",
		"nested/../../secret",
		"a/../../b",
		`..\secret`,
		"/etc/passwd",
		`\windows`,
	}
	for _, key := range keys {
		_, _, err := p.Resolve(key)
		if !errors.Is(err, ErrPathEscape) {
			t.Errorf("Resolve(%q) error = %v, want ErrPathEscape", key, err)
		}
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	p, root := newTestPool(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, _, err := p.Resolve("escape"); !errors.Is(err, ErrPathEscape) {
		t.Errorf("Resolve(escape) error = %v, want ErrPathEscape", err)
	}
}

func TestResolve_SymlinkInsideRoot(t *testing.T) {
	p, root := newTestPool(t)

	link := filepath.Join(root, "alias.png")
	if err := os.Symlink(filepath.Join(root, "logo.png"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	path, _, err := p.Resolve("alias.png")
	if err != nil {
		t.Fatalf("Resolve(alias.png) error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, "logo.png"))
	if path != want {
		t.Errorf("resolved path = %q, want %q", path, want)
	}
}

func TestResolve_NotFound(t *testing.T) {
	p, _ := newTestPool(t)

	if _, _, err := p.Resolve("missing.bin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(missing.bin) error = %v, want ErrNotFound", err)
	}
	// Directories are not assets.
	if _, _, err := p.Resolve("nested"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(nested) error = %v, want ErrNotFound", err)
	}
	// The root itself is never an asset; "." resolves to it.
	if _, _, err := p.Resolve("."); !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPathEscape) {
		t.Errorf("Resolve(.) error = %v, want ErrNotFound or ErrPathEscape", err)
	}
}

func TestSet_Get(t *testing.T) {
	art, _ := newTestPool(t)
	dat := New(Dat, t.TempDir())
	set := NewSet(art, dat)

	got, err := set.Get(Art)
	if err != nil || got != art {
		t.Errorf("Get(Art) = %v, %v", got, err)
	}
	got, err = set.Get(Dat)
	if err != nil || got != dat {
		t.Errorf("Get(Dat) = %v, %v", got, err)
	}
	if _, err := set.Get(ID("video")); !errors.Is(err, ErrUnknownPool) {
		t.Errorf("Get(video) error = %v, want ErrUnknownPool", err)
	}
}
