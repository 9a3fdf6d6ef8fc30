package resources

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/sanitization/aws"
)

const (
	DEFAULT_STAGE_NAME = "prod"

	AWS_PROXY_INTEGRATION = "AWS_PROXY"
	MOCK_INTEGRATION      = "MOCK"
)

var (
	httpMethods = []string{"ANY", "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"}

	stageNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,128}$`)
)

type (
	// RestApi is the HTTP front door.
	RestApi struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		StageName   string `yaml:"stage_name"`
		// Role is the identity API Gateway assumes to call integrations. Zero means the integration
		// relies on a resource policy instead.
		Role construct.ResourceId `yaml:"role,omitempty"`
	}

	// ApiResource is one path segment under a RestApi. A zero Parent means the segment hangs off the root.
	ApiResource struct {
		RestApi  construct.ResourceId `yaml:"rest_api"`
		Parent   construct.ResourceId `yaml:"parent,omitempty"`
		PathPart string               `yaml:"path_part"`
		Path     string               `yaml:"path"`
	}

	// ApiMethod binds an HTTP method on a path to an integration. A zero Resource means the root path.
	ApiMethod struct {
		RestApi     construct.ResourceId `yaml:"rest_api"`
		Resource    construct.ResourceId `yaml:"resource,omitempty"`
		HttpMethod  string               `yaml:"http_method"`
		Path        string               `yaml:"path"`
		Integration ApiIntegration       `yaml:"integration"`
	}

	ApiIntegration struct {
		Type                  string               `yaml:"type"`
		IntegrationHttpMethod string               `yaml:"integration_http_method,omitempty"`
		Target                construct.ResourceId `yaml:"target,omitempty"`
		Credentials           construct.ResourceId `yaml:"credentials,omitempty"`
	}

	FrontDoorParams struct {
		Name        string
		Description string
		StageName   string
		Role        construct.ResourceId
	}
)

func (api *RestApi) Id() construct.ResourceId {
	return construct.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     API_GATEWAY_REST_TYPE,
		Name:     api.Name,
	}
}

func apiResourceId(api construct.ResourceId, path string) construct.ResourceId {
	return construct.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      API_GATEWAY_RESOURCE_TYPE,
		Namespace: api.Name,
		Name:      strings.TrimPrefix(path, "/"),
	}
}

func (res *ApiResource) Id() construct.ResourceId {
	return apiResourceId(res.RestApi, res.Path)
}

func apiMethodId(api construct.ResourceId, method, path string) construct.ResourceId {
	return construct.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      API_GATEWAY_METHOD_TYPE,
		Namespace: api.Name,
		Name:      method + ":" + path,
	}
}

func (method *ApiMethod) Id() construct.ResourceId {
	return apiMethodId(method.RestApi, method.HttpMethod, method.Path)
}

// IsRoute is true for methods that forward requests to a compute target.
func (method *ApiMethod) IsRoute() bool {
	return !method.Integration.Target.IsZero()
}

func (method *ApiMethod) RouteKey() string {
	return method.HttpMethod + " " + method.Path
}

// DefineFrontDoor declares a REST API. If a role is given, every route uses it as its integration
// credentials.
func DefineFrontDoor(g construct.Graph, params FrontDoorParams) (*RestApi, error) {
	api := &RestApi{
		Name:        params.Name,
		Description: params.Description,
		StageName:   params.StageName,
		Role:        params.Role,
	}
	if api.StageName == "" {
		api.StageName = DEFAULT_STAGE_NAME
	}
	id := api.Id()

	if err := validateLogicalName(id); err != nil {
		return nil, err
	}
	if err := aws.RestApiNameValidator.Check(params.Name); err != nil {
		return nil, construct.ValidationError{Resource: id, Field: "name", Value: params.Name, Reason: err.Error()}
	}
	if !stageNamePattern.MatchString(api.StageName) {
		return nil, construct.ValidationError{
			Resource: id,
			Field:    "stage name",
			Value:    api.StageName,
			Reason:   fmt.Sprintf("must match %s", stageNamePattern),
		}
	}
	if !params.Role.IsZero() {
		if _, err := construct.GetResource[*IamRole](g, params.Role); err != nil {
			return nil, referenceError(id, params.Role, err)
		}
	}

	if err := construct.AddResource(g, api); err != nil {
		return nil, err
	}
	return api, nil
}

// normalizePath returns the canonical form of `path` and its segments. The root path has no segments.
func normalizePath(api construct.ResourceId, path string) (string, []string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", nil, construct.ValidationError{Resource: api, Field: "path", Value: path, Reason: "must start with '/'"}
	}
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		return "/", nil, nil
	}
	parts := strings.Split(strings.TrimPrefix(trimmed, "/"), "/")
	for i, part := range parts {
		if err := aws.ApiPathPartValidator.Check(part); err != nil {
			return "", nil, construct.ValidationError{Resource: api, Field: "path", Value: path, Reason: err.Error()}
		}
		if strings.HasSuffix(part, "+}") && i != len(parts)-1 {
			return "", nil, construct.ValidationError{Resource: api, Field: "path", Value: path, Reason: "greedy segment must be last"}
		}
	}
	return trimmed, parts, nil
}

func normalizeMethod(api construct.ResourceId, method string) (string, error) {
	m := strings.ToUpper(method)
	for _, valid := range httpMethods {
		if m == valid {
			return m, nil
		}
	}
	return "", construct.ValidationError{
		Resource: api,
		Field:    "http method",
		Value:    method,
		Reason:   fmt.Sprintf("must be one of %s", strings.Join(httpMethods, ", ")),
	}
}

// AddRoute binds `method path` on the front door to the compute unit `target` with a synchronous proxy
// integration. Path segments are shared between routes. If the target is not in the graph, a
// ReferenceError is returned and nothing is added.
func AddRoute(g construct.Graph, api *RestApi, method, path string, target construct.ResourceId) (*ApiMethod, error) {
	apiId := api.Id()
	if err := construct.MustExist(g, construct.ResourceId{}, apiId); err != nil {
		return nil, err
	}
	method, err := normalizeMethod(apiId, method)
	if err != nil {
		return nil, err
	}
	path, parts, err := normalizePath(apiId, path)
	if err != nil {
		return nil, err
	}
	methodId := apiMethodId(apiId, method, path)
	if _, err := g.Vertex(methodId); err == nil {
		return nil, construct.DuplicateError{Id: methodId, Detail: fmt.Sprintf("route %s %s already declared", method, path)}
	}
	if _, err := construct.GetResource[*LambdaFunction](g, target); err != nil {
		return nil, referenceError(methodId, target, err)
	}

	return addMethod(g, api, method, path, parts, ApiIntegration{
		Type:                  AWS_PROXY_INTEGRATION,
		IntegrationHttpMethod: "POST",
		Target:                target,
		Credentials:           api.Role,
	})
}

// AddRootMethod declares a method on the root path with a mock integration.
func AddRootMethod(g construct.Graph, api *RestApi, method string) (*ApiMethod, error) {
	apiId := api.Id()
	if err := construct.MustExist(g, construct.ResourceId{}, apiId); err != nil {
		return nil, err
	}
	method, err := normalizeMethod(apiId, method)
	if err != nil {
		return nil, err
	}
	methodId := apiMethodId(apiId, method, "/")
	if _, err := g.Vertex(methodId); err == nil {
		return nil, construct.DuplicateError{Id: methodId, Detail: fmt.Sprintf("route %s / already declared", method)}
	}
	return addMethod(g, api, method, "/", nil, ApiIntegration{Type: MOCK_INTEGRATION})
}

func addMethod(g construct.Graph, api *RestApi, method, path string, parts []string, integration ApiIntegration) (*ApiMethod, error) {
	apiId := api.Id()
	parent := construct.ResourceId{}
	for i, part := range parts {
		res := &ApiResource{
			RestApi:  apiId,
			Parent:   parent,
			PathPart: part,
			Path:     "/" + strings.Join(parts[:i+1], "/"),
		}
		resId := res.Id()
		if _, err := g.Vertex(resId); err != nil {
			if err := construct.AddResource(g, res); err != nil {
				return nil, err
			}
			dependsOn := apiId
			if !parent.IsZero() {
				dependsOn = parent
			}
			if err := construct.AddDependency(g, resId, dependsOn); err != nil {
				return nil, err
			}
		}
		parent = resId
	}

	m := &ApiMethod{
		RestApi:     apiId,
		Resource:    parent,
		HttpMethod:  method,
		Path:        path,
		Integration: integration,
	}
	id := m.Id()
	if err := construct.AddResource(g, m); err != nil {
		return nil, err
	}
	deps := []construct.ResourceId{apiId}
	if !parent.IsZero() {
		deps = append(deps, parent)
	}
	if !integration.Target.IsZero() {
		deps = append(deps, integration.Target)
	}
	if !integration.Credentials.IsZero() {
		deps = append(deps, integration.Credentials)
	}
	for _, dep := range deps {
		if err := construct.AddDependency(g, id, dep); err != nil {
			return nil, err
		}
	}
	return m, nil
}
