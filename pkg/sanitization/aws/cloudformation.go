package aws

import (
	"regexp"

	"github.com/klothoplatform/kvstack/pkg/sanitization"
)

// LogicalIdSanitizer strips everything CloudFormation does not accept in a logical id.
var LogicalIdSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9]+`),
			Replacement: "",
		},
	}, 255)
