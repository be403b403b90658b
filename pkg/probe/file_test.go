package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

func TestFileNoPatternFoundOnExistingRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := File([]string{path}, nil, NewTargetBuffer())
	if got != policy.Found {
		t.Fatalf("got %s, want Found", got)
	}
}

func TestFileNoPatternNotFoundOnENOENT(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	got := File([]string{missing}, nil, NewTargetBuffer())
	if got != policy.NotFound {
		t.Fatalf("got %s, want NotFound", got)
	}
}

// TestFileNoPatternInvalidOnNonENOENTStatError exercises the review fix: a
// stat error other than ENOENT must contribute Invalid even with no content
// pattern set. Using a path through a regular file as though it were a
// directory yields a guaranteed, privilege-independent ENOTDIR rather than
// ENOENT.
func TestFileNoPatternInvalidOnNonENOENTStatError(t *testing.T) {
	dir := t.TempDir()
	notADir := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(notADir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(notADir, "child")

	got := File([]string{path}, nil, NewTargetBuffer())
	if got != policy.Invalid {
		t.Fatalf("got %s, want Invalid", got)
	}
}

func TestFileWithPatternMatchesContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte("PermitRootLogin no\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pattern, err := match.Compile("r:^PermitRootLogin no$")
	if err != nil {
		t.Fatal(err)
	}

	got := File([]string{path}, pattern, NewTargetBuffer())
	if got != policy.Found {
		t.Fatalf("got %s, want Found", got)
	}
}

func TestFileWithPatternInvalidOnNonENOENTStatError(t *testing.T) {
	dir := t.TempDir()
	notADir := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(notADir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(notADir, "child")

	pattern, err := match.Compile("r:anything")
	if err != nil {
		t.Fatal(err)
	}

	got := File([]string{path}, pattern, NewTargetBuffer())
	if got != policy.Invalid {
		t.Fatalf("got %s, want Invalid", got)
	}
}
