package cloudformation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/provider/aws/resources"
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

const (
	ASSET_BUCKET_PARAMETER = "AssetBucket"

	assetKeySuffix       = "AssetKey"
	policySuffix         = "DefaultPolicy"
	deploymentSuffix     = "Deployment"
	stageSuffix          = "Stage"
	endpointOutputSuffix = "Endpoint"
	tableOutputSuffix    = "TableName"
)

// translator renders one graph into one template. References made through ref and getAtt are recorded so
// that only the dependencies not already implied by an intrinsic end up in DependsOn.
type translator struct {
	g        construct.Graph
	ids      *logicalIds
	config   *Config
	template *Template

	// policies are the logical ids of the rendered identity policies, by role.
	policies   map[construct.ResourceId]string
	referenced map[construct.ResourceId]struct{}
}

func (t *translator) ref(id construct.ResourceId) (intrinsics.Ref, error) {
	name, err := t.ids.Get(id)
	if err != nil {
		return intrinsics.Ref{}, err
	}
	t.referenced[id] = struct{}{}
	return intrinsics.Ref{LogicalName: name}, nil
}

func (t *translator) getAtt(id construct.ResourceId, attribute string) (intrinsics.GetAtt, error) {
	name, err := t.ids.Get(id)
	if err != nil {
		return intrinsics.GetAtt{}, err
	}
	t.referenced[id] = struct{}{}
	return intrinsics.GetAtt{LogicalName: name, Attribute: attribute}, nil
}

// attrRef renders a pointer at a resource attribute, joining on the suffix when there is one.
func (t *translator) attrRef(r resources.AttrRef) (any, error) {
	att, err := t.getAtt(r.Resource, r.Attribute)
	if err != nil {
		return nil, err
	}
	if r.Suffix == "" {
		return att, nil
	}
	return intrinsics.Join{Delimiter: "", Values: []any{att, r.Suffix}}, nil
}

func (t *translator) add(logicalId string, def ResourceDef) {
	t.template.Resources = append(t.template.Resources, NamedResource{LogicalId: logicalId, Resource: def})
}

// dependsOn lists the logical ids of the dependencies of `id` that no intrinsic in its properties refers to,
// plus any `extra` ids.
func (t *translator) dependsOn(id construct.ResourceId, extra ...string) ([]string, error) {
	deps, err := construct.DirectDownstreamDependencies(t.g, id)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, dep := range deps {
		if _, ok := t.referenced[dep]; ok {
			continue
		}
		edge, err := t.g.Edge(id, dep)
		if err != nil {
			return nil, err
		}
		if construct.EdgeDataOf(edge).Kind != construct.DependencyEdge {
			continue
		}
		name, err := t.ids.Get(dep)
		if err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	result = append(result, extra...)
	sort.Strings(result)
	return result, nil
}

func (t *translator) translate(id construct.ResourceId) error {
	t.referenced = make(map[construct.ResourceId]struct{})
	r, err := t.g.Vertex(id)
	if err != nil {
		return err
	}
	switch r := r.(type) {
	case *resources.DynamodbTable:
		return t.table(r)
	case *resources.IamRole:
		return t.role(r)
	case *resources.LambdaFunction:
		return t.function(r)
	case *resources.RestApi:
		return t.restApi(r)
	case *resources.ApiResource:
		return t.apiResource(r)
	case *resources.ApiMethod:
		return t.apiMethod(r)
	default:
		return fmt.Errorf("unsupported resource %s (%T)", id, r)
	}
}

func (t *translator) table(table *resources.DynamodbTable) error {
	name, err := t.ids.Get(table.Id())
	if err != nil {
		return err
	}
	attributes := make([]map[string]any, len(table.Attributes))
	for i, a := range table.Attributes {
		attributes[i] = map[string]any{"AttributeName": a.Name, "AttributeType": a.Type}
	}
	keySchema := make([]map[string]any, 0, 2)
	for _, k := range table.KeySchema() {
		keySchema = append(keySchema, map[string]any{"AttributeName": k.AttributeName, "KeyType": k.KeyType})
	}
	t.add(name, ResourceDef{
		Type: "AWS::DynamoDB::Table",
		Properties: map[string]any{
			"TableName":            table.Name,
			"BillingMode":          table.BillingMode,
			"AttributeDefinitions": attributes,
			"KeySchema":            keySchema,
		},
		// A table keeps its data when it leaves the stack.
		DeletionPolicy:      "Retain",
		UpdateReplacePolicy: "Retain",
	})

	t.template.Outputs[name+tableOutputSuffix] = Output{
		Description: fmt.Sprintf("Name of the %s table", table.Name),
		Value:       intrinsics.Ref{LogicalName: name},
	}
	return nil
}

func managedPolicyArn(arn string) any {
	if rest, ok := strings.CutPrefix(arn, "arn:aws:"); ok {
		return intrinsics.Sub{String: "arn:${AWS::Partition}:" + rest}
	}
	return arn
}

func (t *translator) role(role *resources.IamRole) error {
	id := role.Id()
	name, err := t.ids.Get(id)
	if err != nil {
		return err
	}
	trust := make([]map[string]any, 0, 1)
	for _, stmt := range role.AssumeRolePolicyDoc.Statement {
		trust = append(trust, map[string]any{
			"Effect":    stmt.Effect,
			"Action":    stmt.Action,
			"Principal": map[string]any{"Service": stmt.Principal.Service},
		})
	}
	props := map[string]any{
		"AssumeRolePolicyDocument": map[string]any{
			"Version":   role.AssumeRolePolicyDoc.Version,
			"Statement": trust,
		},
	}
	if role.RoleName != "" {
		props["RoleName"] = role.RoleName
	}
	if role.Description != "" {
		props["Description"] = role.Description
	}
	if len(role.AwsManagedPolicies) > 0 {
		arns := make([]any, len(role.AwsManagedPolicies))
		for i, arn := range role.AwsManagedPolicies {
			arns[i] = managedPolicyArn(arn)
		}
		props["ManagedPolicyArns"] = arns
	}
	t.add(name, ResourceDef{Type: "AWS::IAM::Role", Properties: props})
	return t.rolePolicy(role)
}

// grantedStatements collects, from every resource `role` was granted access to, the statements naming it.
func (t *translator) grantedStatements(role construct.ResourceId) ([]resources.StatementEntry, error) {
	grants, err := resources.Grants(t.g)
	if err != nil {
		return nil, err
	}
	var statements []resources.StatementEntry
	for _, gr := range grants {
		if gr.Grantee != role {
			continue
		}
		grantor, err := t.g.Vertex(gr.Grantor)
		if err != nil {
			return nil, err
		}
		var policy *resources.PolicyDocument
		switch grantor := grantor.(type) {
		case *resources.DynamodbTable:
			policy = grantor.AccessPolicy
		case *resources.LambdaFunction:
			policy = grantor.AccessPolicy
		default:
			return nil, fmt.Errorf("%s cannot grant access to %s", gr.Grantor, role)
		}
		statements = append(statements, policy.StatementsFor(role)...)
	}
	return statements, nil
}

// rolePolicy renders the identity policy of `role`, if it was granted anything. Grant edges make every
// grantor come before its grantees, so the granted resources are already in the template.
func (t *translator) rolePolicy(role *resources.IamRole) error {
	id := role.Id()
	statements, err := t.grantedStatements(id)
	if err != nil || len(statements) == 0 {
		return err
	}
	name, err := t.ids.derive(id, policySuffix)
	if err != nil {
		return err
	}
	roleRef, err := t.ref(id)
	if err != nil {
		return err
	}
	rendered := make([]map[string]any, len(statements))
	for i, stmt := range statements {
		refs := make([]any, len(stmt.Resource))
		for j, r := range stmt.Resource {
			if refs[j], err = t.attrRef(r); err != nil {
				return err
			}
		}
		rendered[i] = map[string]any{
			"Effect":   stmt.Effect,
			"Action":   stmt.Action,
			"Resource": refs,
		}
	}
	t.add(name, ResourceDef{
		Type: "AWS::IAM::Policy",
		Properties: map[string]any{
			"PolicyName": name,
			"Roles":      []any{roleRef},
			"PolicyDocument": map[string]any{
				"Version":   resources.VERSION,
				"Statement": rendered,
			},
		},
	})
	t.policies[id] = name
	return nil
}

func (t *translator) function(fn *resources.LambdaFunction) error {
	id := fn.Id()
	name, err := t.ids.Get(id)
	if err != nil {
		return err
	}
	keyParam, err := t.ids.derive(id, assetKeySuffix)
	if err != nil {
		return err
	}
	param := Parameter{
		Type:        "String",
		Description: fmt.Sprintf("S3 key of the bundled code of %s", fn.Name),
	}
	if key, ok := t.config.AssetKeys[id]; ok {
		param.Default = key
	}
	t.template.Parameters[keyParam] = param

	roleArn, err := t.getAtt(fn.Role, resources.ARN_ATTRIBUTE)
	if err != nil {
		return err
	}
	props := map[string]any{
		"Code": map[string]any{
			"S3Bucket": intrinsics.Ref{LogicalName: ASSET_BUCKET_PARAMETER},
			"S3Key":    intrinsics.Ref{LogicalName: keyParam},
		},
		"Handler":    fn.Handler,
		"Runtime":    fn.Runtime,
		"Timeout":    fn.Timeout,
		"MemorySize": fn.MemorySize,
		"Role":       roleArn,
	}
	if len(fn.Environment) > 0 {
		props["Environment"] = map[string]any{"Variables": fn.Environment}
	}

	// The function must not run before its role can reach what it was granted.
	var extra []string
	if policy, ok := t.policies[fn.Role]; ok {
		extra = append(extra, policy)
	}
	deps, err := t.dependsOn(id, extra...)
	if err != nil {
		return err
	}
	t.add(name, ResourceDef{Type: "AWS::Lambda::Function", DependsOn: deps, Properties: props})
	return nil
}

func (t *translator) restApi(api *resources.RestApi) error {
	name, err := t.ids.Get(api.Id())
	if err != nil {
		return err
	}
	props := map[string]any{"Name": api.Name}
	if api.Description != "" {
		props["Description"] = api.Description
	}
	t.add(name, ResourceDef{Type: "AWS::ApiGateway::RestApi", Properties: props})
	return nil
}

// parentRef points at `parent`, or at the root resource of `api` if there is none.
func (t *translator) parentRef(api, parent construct.ResourceId) (any, error) {
	if parent.IsZero() {
		return t.getAtt(api, "RootResourceId")
	}
	return t.ref(parent)
}

func (t *translator) apiResource(res *resources.ApiResource) error {
	id := res.Id()
	name, err := t.ids.Get(id)
	if err != nil {
		return err
	}
	apiRef, err := t.ref(res.RestApi)
	if err != nil {
		return err
	}
	parent, err := t.parentRef(res.RestApi, res.Parent)
	if err != nil {
		return err
	}
	deps, err := t.dependsOn(id)
	if err != nil {
		return err
	}
	t.add(name, ResourceDef{
		Type:      "AWS::ApiGateway::Resource",
		DependsOn: deps,
		Properties: map[string]any{
			"RestApiId": apiRef,
			"ParentId":  parent,
			"PathPart":  res.PathPart,
		},
	})
	return nil
}

func (t *translator) integration(in resources.ApiIntegration) (map[string]any, error) {
	switch in.Type {
	case resources.AWS_PROXY_INTEGRATION:
		fnArn, err := t.getAtt(in.Target, resources.ARN_ATTRIBUTE)
		if err != nil {
			return nil, err
		}
		integration := map[string]any{
			"Type":                  in.Type,
			"IntegrationHttpMethod": in.IntegrationHttpMethod,
			"Uri": intrinsics.Join{Delimiter: "", Values: []any{
				"arn:", intrinsics.AWS_PARTITION,
				":apigateway:", intrinsics.AWS_REGION,
				":lambda:path/2015-03-31/functions/", fnArn, "/invocations",
			}},
		}
		if !in.Credentials.IsZero() {
			roleArn, err := t.getAtt(in.Credentials, resources.ARN_ATTRIBUTE)
			if err != nil {
				return nil, err
			}
			integration["Credentials"] = roleArn
		}
		return integration, nil

	case resources.MOCK_INTEGRATION:
		return map[string]any{
			"Type":                 in.Type,
			"RequestTemplates":     map[string]any{"application/json": `{"statusCode": 200}`},
			"IntegrationResponses": []any{map[string]any{"StatusCode": "200"}},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported integration type %q", in.Type)
	}
}

func (t *translator) apiMethod(method *resources.ApiMethod) error {
	id := method.Id()
	name, err := t.ids.Get(id)
	if err != nil {
		return err
	}
	apiRef, err := t.ref(method.RestApi)
	if err != nil {
		return err
	}
	resource, err := t.parentRef(method.RestApi, method.Resource)
	if err != nil {
		return err
	}
	integration, err := t.integration(method.Integration)
	if err != nil {
		return err
	}
	props := map[string]any{
		"RestApiId":         apiRef,
		"ResourceId":        resource,
		"HttpMethod":        method.HttpMethod,
		"AuthorizationType": "NONE",
		"Integration":       integration,
	}
	if method.Integration.Type == resources.MOCK_INTEGRATION {
		props["MethodResponses"] = []any{map[string]any{"StatusCode": "200"}}
	}
	deps, err := t.dependsOn(id)
	if err != nil {
		return err
	}
	t.add(name, ResourceDef{Type: "AWS::ApiGateway::Method", DependsOn: deps, Properties: props})
	return nil
}

// deployment publishes `api` to its stage once all its methods exist, and outputs the stage's URL.
func (t *translator) deployment(api *resources.RestApi, methods []string) error {
	t.referenced = make(map[construct.ResourceId]struct{})
	id := api.Id()
	apiName, err := t.ids.Get(id)
	if err != nil {
		return err
	}
	deploymentName, err := t.ids.derive(id, deploymentSuffix)
	if err != nil {
		return err
	}
	stageName, err := t.ids.derive(id, stageSuffix)
	if err != nil {
		return err
	}
	apiRef, err := t.ref(id)
	if err != nil {
		return err
	}
	sort.Strings(methods)
	t.add(deploymentName, ResourceDef{
		Type:      "AWS::ApiGateway::Deployment",
		DependsOn: methods,
		Properties: map[string]any{
			"RestApiId": apiRef,
		},
	})
	t.add(stageName, ResourceDef{
		Type: "AWS::ApiGateway::Stage",
		Properties: map[string]any{
			"RestApiId":    apiRef,
			"DeploymentId": intrinsics.Ref{LogicalName: deploymentName},
			"StageName":    api.StageName,
		},
	})
	t.template.Outputs[apiName+endpointOutputSuffix] = Output{
		Description: fmt.Sprintf("URL of the %s stage of %s", api.StageName, api.Name),
		Value: intrinsics.Sub{String: fmt.Sprintf(
			"https://${%s}.execute-api.${AWS::Region}.${AWS::URLSuffix}/${%s}/", apiName, stageName,
		)},
	}
	return nil
}
