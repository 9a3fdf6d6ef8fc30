package aws

import (
	"regexp"

	"github.com/klothoplatform/kvstack/pkg/sanitization"
)

var DynamodbTableNameValidator = sanitization.Validator{
	Pattern:     regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`),
	MinLength:   3,
	MaxLength:   255,
	Description: "letters, digits, '_', '.' or '-'",
}

// DynamodbTableSanitizer returns a valid physical table name when applied.
var DynamodbTableSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_.-]+`),
			Replacement: "-",
		},
	}, 255)

// DynamodbAttributeNameValidator covers key attribute names, which are limited far below item attributes.
var DynamodbAttributeNameValidator = sanitization.Validator{
	MinLength: 1,
	MaxLength: 255,
}
