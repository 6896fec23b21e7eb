// Package guard detects the bypass-prevention guard in a consumer project.
//
// The guard is an ordinary test in the consumer's suite that fails unless
// the enforcement marker is present in its environment. The ratchet sets
// the marker before invoking the harness, so running the harness directly
// fails loudly with instructions instead of silently skipping enforcement.
package guard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roach88/ratchet/internal/runner"
)

// DefaultEnv is the enforcement marker variable.
const DefaultEnv = "TDD_RATCHET"

// Default guard test names per harness family.
const (
	DefaultGoName   = "TestRatchetGatekeeper"
	DefaultRustName = "tdd_ratchet_gatekeeper"
)

// ErrMissing means no guard test was found in the project.
var ErrMissing = errors.New("bypass-prevention guard not found")

// skipDirs are never searched for the guard.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"target":       true,
	"testdata":     true,
}

// Guard describes the guard test a consumer project must contain.
type Guard struct {
	// Name is the guard test function name.
	Name string
	// Env is the marker variable the guard checks.
	Env string
	// Patterns are base-name globs of files that may declare the guard.
	Patterns []string
}

// ForHarness returns the default guard for a harness.
func ForHarness(harness string) Guard {
	switch harness {
	case runner.HarnessLibtest, runner.HarnessNextest:
		return Guard{Name: DefaultRustName, Env: DefaultEnv, Patterns: []string{"*.rs"}}
	default:
		return Guard{Name: DefaultGoName, Env: DefaultEnv, Patterns: []string{"*_test.go"}}
	}
}

// Check walks root looking for a file that declares the guard function.
// It returns the path of the first match, or ErrMissing.
func (g Guard) Check(root string) (string, error) {
	if g.Name == "" {
		return "", fmt.Errorf("guard name is empty")
	}
	// Only a declaration at the start of a line counts, so commented-out
	// code does not satisfy the check.
	decl := regexp.MustCompile(`(?m)^[ \t]*(?:pub(?:\([a-z]+\))?\s+)?(?:func|fn)\s+` + regexp.QuoteMeta(g.Name) + `\s*\(`)

	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !g.matchesFile(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if decl.Match(data) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search for guard %s: %w", g.Name, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no test named %s in files matching %v", ErrMissing, g.Name, g.Patterns)
	}
	return found, nil
}

func (g Guard) matchesFile(name string) bool {
	for _, pattern := range g.Patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Matches reports whether a test identifier names the guard test.
// The guard name must be the whole identifier or its last path segment.
func (g Guard) Matches(id string) bool {
	if g.Name == "" || !strings.HasSuffix(id, g.Name) {
		return false
	}
	rest := id[:len(id)-len(g.Name)]
	if rest == "" {
		return true
	}
	switch rest[len(rest)-1] {
	case ':', '.', '/', '$':
		return true
	}
	return false
}

// Environ returns base with the enforcement marker appended.
func (g Guard) Environ(base []string) []string {
	env := make([]string, 0, len(base)+1)
	env = append(env, base...)
	return append(env, g.Env+"=1")
}

// Snippet returns guard test source for the harness, for bootstrapping.
// The Go form carries its imports and goes after the package clause of a
// new _test.go file.
func (g Guard) Snippet(harness string) string {
	switch harness {
	case runner.HarnessLibtest, runner.HarnessNextest:
		return fmt.Sprintf(`#[test]
fn %s() {
    if std::env::var(%q).is_err() {
        panic!(
            "\n\nThis project requires failing-first tests, verified via history.\n\
             Do not run the test harness directly.\n\
             Run `+"`ratchet check`"+` instead.\n\n"
        );
    }
}
`, g.Name, g.Env)
	default:
		return fmt.Sprintf(`import (
	"os"
	"testing"
)

func %s(t *testing.T) {
	if os.Getenv(%q) == "" {
		t.Fatal("this project requires failing-first tests, verified via history: " +
			"do not run go test directly, run `+"`ratchet check`"+` instead")
	}
}
`, g.Name, g.Env)
	}
}
