package sanitization

import (
	"fmt"
	"regexp"
	"strings"
)

type (
	Sanitizer struct {
		rules     []Rule
		maxLength int
	}

	Rule struct {
		Pattern     *regexp.Regexp
		Replacement string
		Lowercase   bool
	}

	// Validator checks a value against a documented format without modifying it.
	Validator struct {
		Pattern   *regexp.Regexp
		MinLength int
		MaxLength int
		// Description is the human-readable form of the pattern used in error reasons.
		Description string
	}
)

func (s *Sanitizer) Apply(input string) string {
	output := input
	for _, rule := range s.rules {
		if rule.Lowercase {
			output = strings.ToLower(output)
		}
		output = rule.Pattern.ReplaceAllString(output, rule.Replacement)
	}
	if s.maxLength > 0 && len(output) > s.maxLength {
		output = output[:s.maxLength]
	}
	return output
}

// NewSanitizer creates a sanitizer which applies each rule in order and then truncates to `maxLength`
// (0 for no limit).
func NewSanitizer(rules []Rule, maxLength int) *Sanitizer {
	return &Sanitizer{rules: rules, maxLength: maxLength}
}

// Check returns a non-nil error describing why `value` is not valid. The error message is suitable as
// the reason of a validation error.
func (v Validator) Check(value string) error {
	if v.MinLength > 0 && len(value) < v.MinLength {
		return fmt.Errorf("must be at least %d characters", v.MinLength)
	}
	if v.MaxLength > 0 && len(value) > v.MaxLength {
		return fmt.Errorf("must be at most %d characters", v.MaxLength)
	}
	if v.Pattern != nil && !v.Pattern.MatchString(value) {
		desc := v.Description
		if desc == "" {
			desc = v.Pattern.String()
		}
		return fmt.Errorf("must match %s", desc)
	}
	return nil
}
