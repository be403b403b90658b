package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader produces a validated in-memory Policy from a source path. Policy
// document ingestion is an external collaborator per spec.md §1 Non-goal
// (a) — this is a reference implementation so the engine is runnable
// end to end, not the "policy authoring UI" the Non-goal excludes.
type Loader interface {
	Load(path string) (*Policy, error)
}

// yamlCheck/yamlPolicy mirror the on-disk schema; kept unexported since
// callers only ever see the parsed Policy/Check types.
type yamlCheck struct {
	ID          int                 `yaml:"id"`
	Title       string              `yaml:"title"`
	Description string              `yaml:"description"`
	Rationale   string              `yaml:"rationale"`
	Remediation string              `yaml:"remediation"`
	Compliance  map[string][]string `yaml:"compliance"`
	References  []string            `yaml:"references"`
	Condition   string              `yaml:"condition"`
	Rules       []string            `yaml:"rules"`
}

type yamlRequirements struct {
	Title     string   `yaml:"title"`
	Condition string   `yaml:"condition"`
	Rules     []string `yaml:"rules"`
}

type yamlPolicy struct {
	Policy struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		References  []string `yaml:"references"`
	} `yaml:"policy"`
	Requirements *yamlRequirements `yaml:"requirements"`
	Variables    map[string]string `yaml:"variables"`
	Checks       []yamlCheck       `yaml:"checks"`
}

// YAMLLoader loads policies from YAML files on the local filesystem.
type YAMLLoader struct {
	// Remote marks policies loaded by this instance as remote-sourced,
	// gating the Command rule per spec.md §4.2/§6 remote_commands.
	Remote bool
}

// Load reads, parses, and validates a policy document at path.
func (l *YAMLLoader) Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var doc yamlPolicy
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	if doc.Policy.ID == "" {
		return nil, fmt.Errorf("policy file %s: missing policy.id", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	p := &Policy{
		ID:          doc.Policy.ID,
		Name:        doc.Policy.Name,
		Description: doc.Policy.Description,
		File:        abs,
		References:  doc.Policy.References,
		Variables:   doc.Variables,
		Remote:      l.Remote,
	}

	if doc.Requirements != nil {
		req, err := buildCheck(yamlCheck{
			ID:        -1,
			Title:     doc.Requirements.Title,
			Condition: doc.Requirements.Condition,
			Rules:     doc.Requirements.Rules,
		})
		if err != nil {
			return nil, fmt.Errorf("policy file %s: requirements: %w", path, err)
		}
		p.Requirements = &req
	}

	for _, yc := range doc.Checks {
		c, err := buildCheck(yc)
		if err != nil {
			return nil, fmt.Errorf("policy file %s: check %d: %w", path, yc.ID, err)
		}
		p.Checks = append(p.Checks, c)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func buildCheck(yc yamlCheck) (Check, error) {
	cond, err := ParseCondition(yc.Condition)
	if err != nil {
		return Check{}, err
	}

	rules := make([]Rule, 0, len(yc.Rules))
	for _, literal := range yc.Rules {
		r, err := ParseRule(literal)
		if err != nil {
			return Check{}, err
		}
		rules = append(rules, r)
	}

	return Check{
		ID:          yc.ID,
		Title:       yc.Title,
		Description: yc.Description,
		Rationale:   yc.Rationale,
		Remediation: yc.Remediation,
		Compliance:  yc.Compliance,
		References:  yc.References,
		Condition:   cond,
		Rules:       rules,
	}, nil
}

// HashFile returns the hex-encoded SHA-256 of a policy file's bytes, used
// by the integrity store to detect policy changes between scans.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hashing policy file %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
