package aws

import (
	"regexp"

	"github.com/klothoplatform/kvstack/pkg/sanitization"
)

// LambdaFunctionSanitizer returns a sanitized lambda function name when applied.
var LambdaFunctionSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		// strip any characters not matching [a-zA-Z0-9-_]
		{
			Pattern:     regexp.MustCompile(`[^\w-]+`),
			Replacement: "",
		},
	}, 64)

var LambdaFunctionNameValidator = sanitization.Validator{
	Pattern:     regexp.MustCompile(`^[\w-]+$`),
	MinLength:   1,
	MaxLength:   64,
	Description: "letters, digits, '_' or '-'",
}

var (
	// DotnetHandlerValidator matches `Assembly::Namespace.Class::Method`.
	DotnetHandlerValidator = sanitization.Validator{
		Pattern:     regexp.MustCompile(`^[^:\s]+::[^:\s]+::[^:\s]+$`),
		MaxLength:   128,
		Description: "Assembly::Namespace.Class::Method",
	}

	// ScriptHandlerValidator matches `file.function` as used by interpreted runtimes.
	ScriptHandlerValidator = sanitization.Validator{
		Pattern:     regexp.MustCompile(`^[^\s.]+(/[^\s.]+)*(\.[^\s.]+)+$`),
		MaxLength:   128,
		Description: "file.function",
	}

	// JavaHandlerValidator matches `package.Class` with an optional `::method`.
	JavaHandlerValidator = sanitization.Validator{
		Pattern:     regexp.MustCompile(`^[\w$]+(\.[\w$]+)*(::[\w$]+)?$`),
		MaxLength:   128,
		Description: "package.Class[::method]",
	}

	// BinaryHandlerValidator is used by custom runtimes where the handler is just an executable name.
	BinaryHandlerValidator = sanitization.Validator{
		Pattern:     regexp.MustCompile(`^\S+$`),
		MaxLength:   128,
		Description: "a name without whitespace",
	}
)

var (
	EnvVarKeyValidator = sanitization.Validator{
		Pattern:     regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`),
		Description: "a letter followed by letters, digits or '_'",
	}

	// ReservedEnvVarKey matches keys the Lambda service sets itself and rejects when configured.
	ReservedEnvVarKey = regexp.MustCompile(`^(AWS_|LAMBDA_|_HANDLER$|_X_AMZN_TRACE_ID$|TZ$)`)
)

// EnvVarKeySanitizer returns a sanitized environment key when applied.
var EnvVarKeySanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		// strip any leading non alpha characters
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z]+`),
			Replacement: "",
		},
		// replace "-" or whitespace with "_"
		{
			Pattern:     regexp.MustCompile(`[-\s]+`),
			Replacement: "_",
		},
		// strip any other invalid characters
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_]+`),
			Replacement: "",
		},
	}, 0)
