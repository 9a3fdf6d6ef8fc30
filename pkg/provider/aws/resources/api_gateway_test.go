package resources

import (
	"errors"
	"testing"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/construct/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrontDoor(t *testing.T) (construct.Graph, *RestApi, *LambdaFunction) {
	t.Helper()
	g, _, _, apiRole, fn := testBackend(t)
	api, err := DefineFrontDoor(g, FrontDoorParams{Name: "CdkApi", Role: apiRole.Id()})
	require.NoError(t, err)
	return g, api, fn
}

func TestDefineFrontDoor(t *testing.T) {
	tests := []struct {
		name      string
		params    FrontDoorParams
		wantStage string
		wantField string
		wantRef   bool
	}{
		{
			name:      "default stage",
			params:    FrontDoorParams{Name: "CdkApi"},
			wantStage: DEFAULT_STAGE_NAME,
		},
		{
			name:      "custom stage",
			params:    FrontDoorParams{Name: "CdkApi", StageName: "dev"},
			wantStage: "dev",
		},
		{
			name:      "invalid stage",
			params:    FrontDoorParams{Name: "CdkApi", StageName: "dev-1"},
			wantField: "stage name",
		},
		{
			name:    "missing role",
			params:  FrontDoorParams{Name: "CdkApi", Role: graphtest.ParseId(t, "aws:iam_role:Nope")},
			wantRef: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			g := construct.NewGraph()

			api, err := DefineFrontDoor(g, tt.params)
			switch {
			case tt.wantField != "":
				var verr construct.ValidationError
				require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
				assert.Equal(tt.wantField, verr.Field)
			case tt.wantRef:
				var ref construct.ReferenceError
				require.True(t, errors.As(err, &ref), "expected a ReferenceError, got %v", err)
				assert.Equal(tt.params.Role, ref.Ref)
			default:
				require.NoError(t, err)
				assert.Equal(tt.wantStage, api.StageName)
				return
			}
			assert.Equal(0, vertexCount(t, g))
		})
	}
}

func TestAddRoute(t *testing.T) {
	g, api, fn := testFrontDoor(t)
	assert := assert.New(t)

	create, err := AddRoute(g, api, "post", "/create", fn.Id())
	require.NoError(t, err)
	root, err := AddRootMethod(g, api, "ANY")
	require.NoError(t, err)

	assert.Equal("POST", create.HttpMethod)
	assert.Equal("POST /create", create.RouteKey())
	assert.True(create.IsRoute())
	assert.Equal(ApiIntegration{
		Type:                  AWS_PROXY_INTEGRATION,
		IntegrationHttpMethod: "POST",
		Target:                fn.Id(),
		Credentials:           api.Role,
	}, create.Integration)

	assert.False(root.IsRoute())
	assert.Equal("ANY /", root.RouteKey())
	assert.True(root.Resource.IsZero())

	graphtest.ResourcesExpectation{
		Nodes: []string{
			"aws:rest_api:CdkApi",
			"aws:api_resource:CdkApi:create",
			"aws:api_method:CdkApi:POST:/create",
			"aws:api_method:CdkApi:ANY:/",
		},
		Deps: []string{
			"aws:api_resource:CdkApi:create -> aws:rest_api:CdkApi",
			"aws:api_method:CdkApi:POST:/create -> aws:rest_api:CdkApi",
			"aws:api_method:CdkApi:POST:/create -> aws:api_resource:CdkApi:create",
			"aws:api_method:CdkApi:POST:/create -> aws:lambda_function:DynamoDbHandler",
			"aws:api_method:CdkApi:POST:/create -> aws:iam_role:ApiGatewayIntegrationRole",
			"aws:api_method:CdkApi:ANY:/ -> aws:rest_api:CdkApi",
		},
		AssertSubset: true,
	}.Assert(t, g)
}

func TestAddRoute_sharedPathResources(t *testing.T) {
	g, api, fn := testFrontDoor(t)

	_, err := AddRoute(g, api, "GET", "/items/{id}", fn.Id())
	require.NoError(t, err)
	_, err = AddRoute(g, api, "DELETE", "/items/{id}/", fn.Id())
	require.NoError(t, err)
	_, err = AddRoute(g, api, "GET", "/items", fn.Id())
	require.NoError(t, err)

	resources, err := construct.ResourcesOfType[*ApiResource](g)
	require.NoError(t, err)
	var paths []string
	for _, r := range resources {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{"/items", "/items/{id}"}, paths)

	child, err := construct.GetResource[*ApiResource](g, graphtest.ParseId(t, "aws:api_resource:CdkApi:items/{id}"))
	require.NoError(t, err)
	assert.Equal(t, "{id}", child.PathPart)
	assert.Equal(t, graphtest.ParseId(t, "aws:api_resource:CdkApi:items"), child.Parent)
}

func TestAddRoute_errors(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		target    string
		wantErr   any
		wantField string
	}{
		{
			name:    "duplicate route",
			method:  "POST",
			path:    "/create",
			target:  "aws:lambda_function:DynamoDbHandler",
			wantErr: &construct.DuplicateError{},
		},
		{
			name:    "duplicate route with trailing slash and lower case",
			method:  "post",
			path:    "/create/",
			target:  "aws:lambda_function:DynamoDbHandler",
			wantErr: &construct.DuplicateError{},
		},
		{
			name:    "target not in graph",
			method:  "GET",
			path:    "/read",
			target:  "aws:lambda_function:Missing",
			wantErr: &construct.ReferenceError{},
		},
		{
			name:    "target is not compute",
			method:  "GET",
			path:    "/read",
			target:  "aws:dynamodb_table:MyCdkTable",
			wantErr: &construct.ReferenceError{},
		},
		{
			name:      "relative path",
			method:    "GET",
			path:      "read",
			target:    "aws:lambda_function:DynamoDbHandler",
			wantErr:   &construct.ValidationError{},
			wantField: "path",
		},
		{
			name:      "greedy segment not last",
			method:    "GET",
			path:      "/{proxy+}/x",
			target:    "aws:lambda_function:DynamoDbHandler",
			wantErr:   &construct.ValidationError{},
			wantField: "path",
		},
		{
			name:      "unknown method",
			method:    "FETCH",
			path:      "/read",
			target:    "aws:lambda_function:DynamoDbHandler",
			wantErr:   &construct.ValidationError{},
			wantField: "http method",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			g, api, fn := testFrontDoor(t)
			_, err := AddRoute(g, api, "POST", "/create", fn.Id())
			require.NoError(t, err)
			before := vertexCount(t, g)

			m, err := AddRoute(g, api, tt.method, tt.path, graphtest.ParseId(t, tt.target))
			require.Error(t, err)
			assert.Nil(m)
			assert.ErrorAs(err, tt.wantErr)
			if verr, ok := tt.wantErr.(*construct.ValidationError); ok {
				assert.Equal(tt.wantField, verr.Field)
			}
			assert.Equal(before, vertexCount(t, g), "nothing is added on error")
		})
	}
}

func TestAddRoute_apiNotDeclared(t *testing.T) {
	g, _, _, _, fn := testBackend(t)

	_, err := AddRoute(g, &RestApi{Name: "Elsewhere"}, "GET", "/", fn.Id())
	assert.ErrorAs(t, err, &construct.ReferenceError{})
}
