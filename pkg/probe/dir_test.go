package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

func TestDirNilSelectorIsExistenceCheckOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "child"), []byte("nomatch"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A pattern that would match the child file's contents if Dir walked it.
	pattern, err := match.Compile("r:nomatch")
	if err != nil {
		t.Fatal(err)
	}

	got := Dir([]string{dir}, nil, pattern, DirOptions{}, NewTargetBuffer())
	if got != policy.Found {
		t.Fatalf("nil-selector Dir over an existing directory: got %s, want Found (existence only, no walk)", got)
	}
}

func TestDirNilSelectorNotFoundOnMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	got := Dir([]string{missing}, nil, nil, DirOptions{}, NewTargetBuffer())
	if got != policy.NotFound {
		t.Fatalf("got %s, want NotFound", got)
	}
}

func TestDirNilSelectorInvalidWhenNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Dir([]string{file}, nil, nil, DirOptions{}, NewTargetBuffer())
	if got != policy.Invalid {
		t.Fatalf("got %s, want Invalid", got)
	}
}

func TestDirWithSelectorWalksAndMatchesEntryName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "target.conf"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.conf"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	selector, err := CompileSelector("target.conf")
	if err != nil {
		t.Fatal(err)
	}
	pattern, err := match.Compile("r:secret")
	if err != nil {
		t.Fatal(err)
	}

	got := Dir([]string{dir}, selector, pattern, DirOptions{}, NewTargetBuffer())
	if got != policy.Found {
		t.Fatalf("got %s, want Found", got)
	}
}

func TestDirWithSelectorNotFoundWhenNoEntryMatches(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "other.conf"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	selector, err := CompileSelector("target.conf")
	if err != nil {
		t.Fatal(err)
	}

	got := Dir([]string{dir}, selector, nil, DirOptions{}, NewTargetBuffer())
	if got != policy.NotFound {
		t.Fatalf("got %s, want NotFound", got)
	}
}
