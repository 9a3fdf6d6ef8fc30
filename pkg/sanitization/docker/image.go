package docker

import (
	"regexp"

	"github.com/klothoplatform/kvstack/pkg/sanitization"
)

// ContainerNameSanitizer returns a sanitized Docker container name when applied.
var ContainerNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			// must only contain lowercase letters, numbers, hyphens, underscores, and periods
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_.-]`),
			Lowercase:   true,
			Replacement: "-",
		},
		{
			// must not start with a non-alphanumeric character
			Pattern:     regexp.MustCompile(`^[^a-z0-9]+`),
			Replacement: "",
		},
	}, 128)

// ImageReferenceValidator matches `[registry/]repository[:tag][@digest]`.
var ImageReferenceValidator = sanitization.Validator{
	Pattern:     regexp.MustCompile(`^[a-z0-9]+([._/:-][a-z0-9]+)*(:[\w][\w.-]{0,127})?(@sha256:[a-f0-9]{64})?$`),
	MaxLength:   255,
	Description: "[registry/]repository[:tag]",
}
