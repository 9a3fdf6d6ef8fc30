package aws

import (
	"regexp"

	"github.com/klothoplatform/kvstack/pkg/sanitization"
)

var RestApiNameValidator = sanitization.Validator{
	MinLength: 1,
	MaxLength: 1024,
}

// ApiPathPartValidator matches a single path segment: a literal, a `{param}` or a greedy `{proxy+}`.
var ApiPathPartValidator = sanitization.Validator{
	Pattern:     regexp.MustCompile(`^([a-zA-Z0-9._~:@!$&'()*+,;=-]+|\{[a-zA-Z0-9._-]+\+?\})$`),
	Description: "a literal segment, {param} or {param+}",
}
