package resources

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/bundling"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/sanitization"
	"github.com/klothoplatform/kvstack/pkg/sanitization/aws"
)

const (
	MIN_LAMBDA_TIMEOUT     = 1
	MAX_LAMBDA_TIMEOUT     = 900
	DEFAULT_LAMBDA_MEMORY  = 128
	MAX_LAMBDA_MEMORY      = 10240
	MAX_LAMBDA_ENVIRONMENT = 4 * 1024
)

type (
	LambdaFunction struct {
		Name        string               `yaml:"name"`
		Runtime     string               `yaml:"runtime"`
		Handler     string               `yaml:"handler"`
		Timeout     int                  `yaml:"timeout"`
		MemorySize  int                  `yaml:"memory_size"`
		Environment map[string]string    `yaml:"environment,omitempty"`
		Role        construct.ResourceId `yaml:"role"`
		Code        bundling.Asset       `yaml:"code"`
		// AccessPolicy holds the statements granting identities permission to invoke this function.
		AccessPolicy *PolicyDocument `yaml:"access_policy,omitempty"`
	}

	ComputeParams struct {
		Name        string
		Runtime     string
		Handler     string
		Timeout     int
		MemorySize  int
		Environment map[string]string
		// Role is the identity the function executes as. It must already be declared.
		Role construct.ResourceId
		// Store, if set, is exposed to the handler through TABLE_NAME.
		Store construct.ResourceId
		Code  bundling.Asset
	}
)

// runtimeFamilies maps runtime prefixes to the handler format they expect.
var runtimeFamilies = []struct {
	prefix    string
	validator sanitization.Validator
}{
	{"dotnet", aws.DotnetHandlerValidator},
	{"nodejs", aws.ScriptHandlerValidator},
	{"python", aws.ScriptHandlerValidator},
	{"ruby", aws.ScriptHandlerValidator},
	{"java", aws.JavaHandlerValidator},
	{"provided", aws.BinaryHandlerValidator},
	{"go1.x", aws.BinaryHandlerValidator},
}

func handlerValidator(runtime string) (sanitization.Validator, bool) {
	for _, f := range runtimeFamilies {
		if strings.HasPrefix(runtime, f.prefix) {
			return f.validator, true
		}
	}
	return sanitization.Validator{}, false
}

func (lambda *LambdaFunction) Id() construct.ResourceId {
	return construct.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     LAMBDA_FUNCTION_TYPE,
		Name:     lambda.Name,
	}
}

// EnvironmentKeys returns the environment variable names in sorted order.
func (lambda *LambdaFunction) EnvironmentKeys() []string {
	keys := make([]string, 0, len(lambda.Environment))
	for k := range lambda.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefineCompute declares a function executing as `params.Role`. When a store is given, its name is
// exposed as TABLE_NAME and the function depends on it. Nothing is added to the graph on error.
func DefineCompute(g construct.Graph, params ComputeParams) (*LambdaFunction, error) {
	lambda := &LambdaFunction{
		Name:        params.Name,
		Runtime:     params.Runtime,
		Handler:     params.Handler,
		Timeout:     params.Timeout,
		MemorySize:  params.MemorySize,
		Role:        params.Role,
		Code:        params.Code,
		Environment: make(map[string]string, len(params.Environment)+1),
	}
	id := lambda.Id()
	if lambda.MemorySize == 0 {
		lambda.MemorySize = DEFAULT_LAMBDA_MEMORY
	}
	for k, v := range params.Environment {
		lambda.Environment[k] = v
	}

	if err := validateLogicalName(id); err != nil {
		return nil, err
	}
	if err := aws.LambdaFunctionNameValidator.Check(params.Name); err != nil {
		return nil, construct.ValidationError{Resource: id, Field: "function name", Value: params.Name, Reason: err.Error()}
	}
	if err := lambda.validateConfig(); err != nil {
		return nil, err
	}

	role, err := construct.GetResource[*IamRole](g, params.Role)
	if err != nil {
		return nil, referenceError(id, params.Role, err)
	}

	if !params.Store.IsZero() {
		table, err := construct.GetResource[*DynamodbTable](g, params.Store)
		if err != nil {
			return nil, referenceError(id, params.Store, err)
		}
		if existing, ok := lambda.Environment[TABLE_NAME_ENV_VAR]; ok && existing != table.Name {
			return nil, construct.ValidationError{
				Resource: id,
				Field:    "environment",
				Value:    TABLE_NAME_ENV_VAR + "=" + existing,
				Reason:   fmt.Sprintf("conflicts with the store name %q", table.Name),
			}
		}
		lambda.Environment[TABLE_NAME_ENV_VAR] = table.Name
		if err := validateEnvironmentSize(id, lambda.Environment); err != nil {
			return nil, err
		}
	}

	if lambda.Code.Entry == "" && strings.HasPrefix(lambda.Runtime, "dotnet") {
		assembly, _, _ := strings.Cut(lambda.Handler, "::")
		lambda.Code.Entry = assembly + ".dll"
	}

	if err := construct.AddResource(g, lambda); err != nil {
		return nil, err
	}
	if err := construct.AddDependency(g, id, role.Id()); err != nil {
		return nil, err
	}
	if !params.Store.IsZero() {
		if err := construct.AddDependency(g, id, params.Store); err != nil {
			return nil, err
		}
	}
	// Every function needs to write its logs.
	role.AddAwsManagedPolicies([]string{BASIC_EXECUTION_POLICY})
	return lambda, nil
}

func (lambda *LambdaFunction) validateConfig() error {
	id := lambda.Id()
	validator, ok := handlerValidator(lambda.Runtime)
	if !ok {
		return construct.ValidationError{Resource: id, Field: "runtime", Value: lambda.Runtime, Reason: "unsupported runtime"}
	}
	if err := validator.Check(lambda.Handler); err != nil {
		return construct.ValidationError{Resource: id, Field: "handler", Value: lambda.Handler, Reason: err.Error()}
	}
	if lambda.Timeout < MIN_LAMBDA_TIMEOUT || lambda.Timeout > MAX_LAMBDA_TIMEOUT {
		return construct.ValidationError{
			Resource: id,
			Field:    "timeout",
			Value:    fmt.Sprint(lambda.Timeout),
			Reason:   fmt.Sprintf("must be between %d and %d seconds", MIN_LAMBDA_TIMEOUT, MAX_LAMBDA_TIMEOUT),
		}
	}
	if lambda.MemorySize < DEFAULT_LAMBDA_MEMORY || lambda.MemorySize > MAX_LAMBDA_MEMORY {
		return construct.ValidationError{
			Resource: id,
			Field:    "memory size",
			Value:    fmt.Sprint(lambda.MemorySize),
			Reason:   fmt.Sprintf("must be between %d and %d MB", DEFAULT_LAMBDA_MEMORY, MAX_LAMBDA_MEMORY),
		}
	}
	for _, k := range lambda.EnvironmentKeys() {
		if err := aws.EnvVarKeyValidator.Check(k); err != nil {
			return construct.ValidationError{Resource: id, Field: "environment key", Value: k, Reason: err.Error()}
		}
		if aws.ReservedEnvVarKey.MatchString(k) {
			return construct.ValidationError{Resource: id, Field: "environment key", Value: k, Reason: "reserved by the Lambda runtime"}
		}
	}
	if err := validateEnvironmentSize(id, lambda.Environment); err != nil {
		return err
	}
	if err := lambda.Code.Validate(); err != nil {
		return construct.ValidationError{Resource: id, Field: "code", Value: lambda.Code.SourcePath, Reason: err.Error()}
	}
	return nil
}

func validateEnvironmentSize(id construct.ResourceId, env map[string]string) error {
	size := 0
	for k, v := range env {
		size += len(k) + len(v)
	}
	if size > MAX_LAMBDA_ENVIRONMENT {
		return construct.ValidationError{
			Resource: id,
			Field:    "environment",
			Value:    fmt.Sprintf("%d bytes", size),
			Reason:   fmt.Sprintf("must be at most %d bytes", MAX_LAMBDA_ENVIRONMENT),
		}
	}
	return nil
}

// referenceError attributes a lookup failure to `referrer`. Type mismatches are reported as reference
// errors too, since the declaration points at something that is not the kind of resource it needs.
func referenceError(referrer, ref construct.ResourceId, err error) error {
	var refErr construct.ReferenceError
	if errors.As(err, &refErr) {
		refErr.Referrer = referrer
		return refErr
	}
	return fmt.Errorf("%s: %w", referrer, construct.ReferenceError{Referrer: referrer, Ref: ref})
}
