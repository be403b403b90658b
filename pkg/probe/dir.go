package probe

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

// DirOptions controls Dir rule evaluation.
type DirOptions struct {
	// SkipNFS, when true, makes an NFS-mounted directory contribute
	// Invalid instead of being walked (capability flag, spec.md §4.2).
	SkipNFS bool
}

// Dir evaluates a Dir rule over a comma-split directory list. A nil selector
// means the rule carries no file-name filter at all ("d:/some/path" with no
// "->" segment), per the original's wm_sca_check_dir_list (file == NULL),
// that is a plain directory-existence check, not a walk of every file under
// the tree. A non-nil selector is applied (literal or "r:"-regex) to entry
// names while walking recursively; matching files are checked against
// pattern via File.
func Dir(dirList []string, selector *match.Pattern, pattern *match.Pattern, opts DirOptions, targets *TargetBuffer) policy.Result {
	if len(dirList) == 0 {
		return policy.NotFound
	}

	sawInvalid := false
	for _, dir := range dirList {
		targets.Add(dir)

		if opts.SkipNFS && IsNFS(dir) {
			sawInvalid = true
			continue
		}

		var result policy.Result
		var err error
		if selector == nil {
			result, err = dirExists(dir)
		} else {
			result, err = walkDir(dir, selector, pattern, targets)
		}
		if err != nil {
			sawInvalid = true
			continue
		}
		if result == policy.Found {
			return policy.Found
		}
		if result == policy.Invalid {
			sawInvalid = true
		}
	}

	if sawInvalid {
		return policy.Invalid
	}
	return policy.NotFound
}

// dirExists implements wm_sca_check_dir_existence: FOUND if dir opens as a
// directory, NOT_FOUND on ENOENT, INVALID on any other error (permission
// denied, not-a-directory, ...).
func dirExists(dir string) (policy.Result, error) {
	f, err := os.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return policy.NotFound, nil
		}
		return policy.Invalid, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return policy.Invalid, nil
	}
	if !info.IsDir() {
		return policy.Invalid, nil
	}
	return policy.Found, nil
}

// walkDir recursively walks dir, applying selector to entry names and
// delegating matching files to File for contents inspection.
func walkDir(dir string, selector *match.Pattern, pattern *match.Pattern, targets *TargetBuffer) (policy.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return policy.Invalid, err
	}

	sawInvalid := false
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		full := filepath.Join(dir, name)

		if entry.IsDir() {
			result, err := walkDir(full, selector, pattern, targets)
			if err != nil {
				sawInvalid = true
				continue
			}
			if result == policy.Found {
				return policy.Found, nil
			}
			if result == policy.Invalid {
				sawInvalid = true
			}
			continue
		}

		if selector != nil && !selector.Match(name) {
			continue
		}

		result := File([]string{full}, pattern, targets)
		if result == policy.Found {
			return policy.Found, nil
		}
		if result == policy.Invalid {
			sawInvalid = true
		}
	}

	if sawInvalid {
		return policy.Invalid, nil
	}
	return policy.NotFound, nil
}

// CompileSelector compiles a selector segment, supporting a literal entry
// name or an "r:"-prefixed regex, per spec.md §4.2.
func CompileSelector(selector string) (*match.Pattern, error) {
	if selector == "" {
		return nil, nil
	}
	if strings.HasPrefix(selector, "r:") {
		return match.Compile(selector)
	}
	return match.Compile("=:" + selector)
}
