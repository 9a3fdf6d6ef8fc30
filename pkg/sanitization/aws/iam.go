package aws

import (
	"regexp"

	"github.com/klothoplatform/kvstack/pkg/sanitization"
)

var IamRoleNameValidator = sanitization.Validator{
	Pattern:     regexp.MustCompile(`^[\w+=,.@-]+$`),
	MinLength:   1,
	MaxLength:   64,
	Description: "alphanumerics or '+=,.@-_'",
}

// IamRoleSanitizer returns a valid role name when applied.
var IamRoleSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w+=,.@-]`),
			Replacement: "_",
		},
	}, 64)

var IamPolicySanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w+=,.@-]`),
			Replacement: "_",
		},
	}, 128)

var IamDescriptionValidator = sanitization.Validator{
	Pattern:     regexp.MustCompile(`^[\t\n\r\x{0020}-\x{007E}\x{00A1}-\x{00FF}]*$`),
	MaxLength:   1000,
	Description: "printable latin-1 characters",
}
