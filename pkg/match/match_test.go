package match

import "testing"

func TestCompileAndMatch(t *testing.T) {
	cases := []struct {
		name      string
		pattern   string
		candidate string
		want      bool
	}{
		{"equal case-insensitive", "=:EnableFoo", "enablefoo", true},
		{"equal mismatch", "=:EnableFoo", "other", false},
		{"regex match", `r:^Enable\w+=1$`, "EnableFoo=1", true},
		{"regex mismatch", `r:^Enable\w+=1$`, "EnableFoo=0", false},
		{"lexicographic less", "<:m", "a", true},
		{"lexicographic greater", ">:a", "m", true},
		{"negated equal", "!=:foo", "bar", true},
		{"negated equal false", "!=:foo", "foo", false},
		{"conjunction both true", "=:foo && r:^f", "foo", true},
		{"conjunction one false", "=:foo && r:^z", "foo", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Compile(tc.pattern)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tc.pattern, err)
			}
			if got := p.Match(tc.candidate); got != tc.want {
				t.Errorf("Match(%q) = %v, want %v", tc.candidate, got, tc.want)
			}
		})
	}
}

func TestCompileInvalidRegex(t *testing.T) {
	if _, err := Compile("r:("); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}
