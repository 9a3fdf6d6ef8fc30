package cloudformation

import (
	"fmt"
	"os"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"
)

// LintResult groups the linter's findings by level.
type LintResult struct {
	Errors        []lint.Match
	Warnings      []lint.Match
	Informational []lint.Match
}

// Passed is true when there are no errors. Warnings do not fail a template.
func (r LintResult) Passed() bool {
	return len(r.Errors) == 0
}

func (r LintResult) Total() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Lint runs cfn-lint against the template at `path`.
func Lint(path string) (LintResult, error) {
	if _, err := os.Stat(path); err != nil {
		return LintResult{}, err
	}
	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(path)
	if err != nil {
		return LintResult{}, fmt.Errorf("could not lint %s: %w", path, err)
	}
	return classify(matches), nil
}

func classify(matches []lint.Match) LintResult {
	var result LintResult
	for _, m := range matches {
		switch m.Level {
		case "Error":
			result.Errors = append(result.Errors, m)
		case "Warning":
			result.Warnings = append(result.Warnings, m)
		default:
			result.Informational = append(result.Informational, m)
		}
	}
	return result
}

// FormatMatch renders a finding as "<rule>: <message>", followed by where in the template it was found.
func FormatMatch(m lint.Match) string {
	if len(m.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", m.Rule.ID, m.Message)
	}
	parts := make([]string, len(m.Location.Path))
	for i, p := range m.Location.Path {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s: %s (at %s)", m.Rule.ID, m.Message, strings.Join(parts, "/"))
}
