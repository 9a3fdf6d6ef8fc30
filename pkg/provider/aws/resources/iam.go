package resources

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/sanitization/aws"
)

const (
	LAMBDA_SERVICE_PRINCIPAL      = "lambda.amazonaws.com"
	API_GATEWAY_SERVICE_PRINCIPAL = "apigateway.amazonaws.com"
)

var servicePrincipalPattern = regexp.MustCompile(`^[a-z0-9-]+(\.[a-z0-9-]+)*\.amazonaws\.com$`)

type (
	// IamRole is an identity a service assumes to act on other resources. Permissions are not stored on
	// the role; they live in the access policies of the resources it was granted access to.
	IamRole struct {
		Name                string          `yaml:"name"`
		RoleName            string          `yaml:"role_name,omitempty"`
		Description         string          `yaml:"description,omitempty"`
		AssumeRolePolicyDoc *PolicyDocument `yaml:"assume_role_policy"`
		AwsManagedPolicies  []string        `yaml:"aws_managed_policies,omitempty"`
	}

	IdentityParams struct {
		// Name is the logical name of the role.
		Name string
		// RoleName is the physical IAM role name. Empty lets the deployment generate one.
		RoleName       string
		Description    string
		TrustPrincipal string
	}
)

func (role *IamRole) Id() construct.ResourceId {
	return construct.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IAM_ROLE_TYPE,
		Name:     role.Name,
	}
}

// TrustedPrincipal returns the single service allowed to assume the role.
func (role *IamRole) TrustedPrincipal() string {
	if role.AssumeRolePolicyDoc == nil || len(role.AssumeRolePolicyDoc.Statement) != 1 {
		return ""
	}
	p := role.AssumeRolePolicyDoc.Statement[0].Principal
	if p == nil {
		return ""
	}
	return p.Service
}

func (role *IamRole) AddAwsManagedPolicies(policies []string) {
	existing := make(map[string]struct{}, len(role.AwsManagedPolicies))
	for _, p := range role.AwsManagedPolicies {
		existing[p] = struct{}{}
	}
	for _, p := range policies {
		if _, ok := existing[p]; !ok {
			existing[p] = struct{}{}
			role.AwsManagedPolicies = append(role.AwsManagedPolicies, p)
		}
	}
	sort.Strings(role.AwsManagedPolicies)
}

// DefineIdentity declares a role assumable by exactly one service principal.
func DefineIdentity(g construct.Graph, params IdentityParams) (*IamRole, error) {
	role := &IamRole{
		Name:        params.Name,
		RoleName:    params.RoleName,
		Description: params.Description,
	}
	id := role.Id()

	if err := validateLogicalName(id); err != nil {
		return nil, err
	}
	if params.RoleName != "" {
		if err := aws.IamRoleNameValidator.Check(params.RoleName); err != nil {
			return nil, construct.ValidationError{Resource: id, Field: "role name", Value: params.RoleName, Reason: err.Error()}
		}
	}
	if err := aws.IamDescriptionValidator.Check(params.Description); err != nil {
		return nil, construct.ValidationError{Resource: id, Field: "description", Value: params.Description, Reason: err.Error()}
	}
	if !servicePrincipalPattern.MatchString(params.TrustPrincipal) {
		return nil, construct.ValidationError{
			Resource: id,
			Field:    "trust principal",
			Value:    params.TrustPrincipal,
			Reason:   fmt.Sprintf("must be a service principal matching %s", servicePrincipalPattern),
		}
	}
	role.AssumeRolePolicyDoc = AssumeRolePolicy(params.TrustPrincipal)

	if err := construct.AddResource(g, role); err != nil {
		return nil, err
	}
	return role, nil
}

var logicalNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]{0,254}$`)

// validateLogicalName checks the name is usable as a graph-wide logical name.
func validateLogicalName(id construct.ResourceId) error {
	if !logicalNamePattern.MatchString(id.Name) {
		return construct.ValidationError{
			Resource: id,
			Field:    "logical name",
			Value:    id.Name,
			Reason:   "must start with a letter followed by at most 254 letters, digits, '_', '.' or '-'",
		}
	}
	return nil
}
