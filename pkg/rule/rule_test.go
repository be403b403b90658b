package rule

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kubecomply/scaagent/pkg/policy"
	"github.com/kubecomply/scaagent/pkg/probe"
)

func newTestContext() *Context {
	return &Context{
		Vars:    map[string]string{},
		Targets: probe.NewTargetBuffer(),
	}
}

func TestEvalFileRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshd_config")
	if err := os.WriteFile(path, []byte("PermitRootLogin no\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := policy.ParseRule("f:" + path + " -> r:PermitRootLogin no")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	result, ok := Eval(context.Background(), newTestContext(), r)
	if !ok {
		t.Fatal("expected rule to be evaluated, not skipped")
	}
	if result != policy.Found {
		t.Fatalf("expected Found, got %s", result)
	}
}

func TestEvalFileRuleNegate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshd_config")
	if err := os.WriteFile(path, []byte("PermitRootLogin yes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := policy.ParseRule("NOT f:" + path + " -> r:PermitRootLogin no")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	result, ok := Eval(context.Background(), newTestContext(), r)
	if !ok {
		t.Fatal("expected rule to be evaluated, not skipped")
	}
	if result != policy.Found {
		t.Fatalf("negated NotFound should report Found, got %s", result)
	}
}

func TestEvalUnresolvedVariableSkips(t *testing.T) {
	r, err := policy.ParseRule("f:$config_file -> r:foo")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	result, ok := Eval(context.Background(), newTestContext(), r)
	if ok {
		t.Fatalf("expected rule to be skipped, got result %s", result)
	}
}

func TestEvalVariableResolved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.conf")
	if err := os.WriteFile(path, []byte("debug=false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := policy.ParseRule("f:$config_file -> r:debug=false")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	rc := newTestContext()
	rc.Vars["$config_file"] = path

	result, ok := Eval(context.Background(), rc, r)
	if !ok {
		t.Fatal("expected rule to be evaluated, not skipped")
	}
	if result != policy.Found {
		t.Fatalf("expected Found, got %s", result)
	}
}

func TestEvalCommandRule(t *testing.T) {
	r, err := policy.ParseRule("c:echo hello -> r:hello")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	result, ok := Eval(context.Background(), newTestContext(), r)
	if !ok {
		t.Fatal("expected rule to be evaluated, not skipped")
	}
	if result != policy.Found {
		t.Fatalf("expected Found, got %s", result)
	}
}

func TestEvalCommandRuleRemoteBlocked(t *testing.T) {
	r, err := policy.ParseRule("c:echo hello -> r:hello")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	rc := newTestContext()
	rc.Remote = true
	rc.Caps.RemoteCommands = false

	result, ok := Eval(context.Background(), rc, r)
	if !ok {
		t.Fatal("expected rule to be evaluated, not skipped")
	}
	if result != policy.Invalid {
		t.Fatalf("expected Invalid for blocked remote command, got %s", result)
	}
}
