package resources

import (
	"errors"
	"strings"
	"testing"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/construct/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineCompute(t *testing.T) {
	g, table, role, _, fn := testBackend(t)
	assert := assert.New(t)

	assert.Equal(map[string]string{TABLE_NAME_ENV_VAR: table.Name}, fn.Environment)
	assert.Equal("MyCdkTable", fn.Environment[TABLE_NAME_ENV_VAR])
	assert.Equal(role.Id(), fn.Role)
	assert.Equal(DEFAULT_LAMBDA_MEMORY, fn.MemorySize)
	assert.Equal("DynamoDbLambda.dll", fn.Code.Entry)
	assert.Equal([]string{BASIC_EXECUTION_POLICY}, role.AwsManagedPolicies)

	graphtest.ResourcesExpectation{
		Nodes: []string{
			"aws:dynamodb_table:MyCdkTable",
			"aws:iam_role:DynamoDbHandlerRole",
			"aws:iam_role:ApiGatewayIntegrationRole",
			"aws:lambda_function:DynamoDbHandler",
		},
		Deps: []string{
			"aws:lambda_function:DynamoDbHandler -> aws:iam_role:DynamoDbHandlerRole",
			"aws:lambda_function:DynamoDbHandler -> aws:dynamodb_table:MyCdkTable",
		},
	}.Assert(t, g)
}

func TestDefineCompute_errors(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(p *ComputeParams)
		wantRef   string
		wantField string
	}{
		{
			name:    "role not declared",
			modify:  func(p *ComputeParams) { p.Role.Name = "MissingRole" },
			wantRef: "aws:iam_role:MissingRole",
		},
		{
			name:    "store not declared",
			modify:  func(p *ComputeParams) { p.Store.Name = "MissingTable" },
			wantRef: "aws:dynamodb_table:MissingTable",
		},
		{
			name:      "timeout too long",
			modify:    func(p *ComputeParams) { p.Timeout = 901 },
			wantField: "timeout",
		},
		{
			name:      "no timeout",
			modify:    func(p *ComputeParams) { p.Timeout = 0 },
			wantField: "timeout",
		},
		{
			name:      "memory too small",
			modify:    func(p *ComputeParams) { p.MemorySize = 64 },
			wantField: "memory size",
		},
		{
			name:      "script handler on dotnet",
			modify:    func(p *ComputeParams) { p.Handler = "index.handler" },
			wantField: "handler",
		},
		{
			name:      "unsupported runtime",
			modify:    func(p *ComputeParams) { p.Runtime = "cobol" },
			wantField: "runtime",
		},
		{
			name:      "reserved environment key",
			modify:    func(p *ComputeParams) { p.Environment = map[string]string{"AWS_REGION": "us-east-1"} },
			wantField: "environment key",
		},
		{
			name:      "invalid environment key",
			modify:    func(p *ComputeParams) { p.Environment = map[string]string{"1ST": "x"} },
			wantField: "environment key",
		},
		{
			name:      "conflicting table name",
			modify:    func(p *ComputeParams) { p.Environment = map[string]string{TABLE_NAME_ENV_VAR: "other"} },
			wantField: "environment",
		},
		{
			name: "environment too large",
			modify: func(p *ComputeParams) {
				p.Environment = map[string]string{"PAYLOAD": strings.Repeat("x", MAX_LAMBDA_ENVIRONMENT)}
			},
			wantField: "environment",
		},
		{
			name:      "steps out of order",
			modify:    func(p *ComputeParams) { p.Code.Steps[4], p.Code.Steps[5] = p.Code.Steps[5], p.Code.Steps[4] },
			wantField: "code",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			g := construct.NewGraph()
			_, err := DefineStore(g, StoreParams{
				TableName:    "MyCdkTable",
				PartitionKey: DynamodbTableAttribute{Name: "PK", Type: "S"},
				SortKey:      DynamodbTableAttribute{Name: "SK", Type: "S"},
			})
			require.NoError(t, err)
			role, err := DefineIdentity(g, IdentityParams{Name: "DynamoDbHandlerRole", TrustPrincipal: LAMBDA_SERVICE_PRINCIPAL})
			require.NoError(t, err)
			before := vertexCount(t, g)

			params := ComputeParams{
				Name:    "DynamoDbHandler",
				Runtime: "dotnetcore3.1",
				Handler: testHandler,
				Timeout: 30,
				Role:    role.Id(),
				Store:   graphtest.ParseId(t, "aws:dynamodb_table:MyCdkTable"),
				Code:    testAsset(t),
			}
			tt.modify(&params)

			fn, err := DefineCompute(g, params)
			require.Error(t, err)
			assert.Nil(fn)
			assert.Equal(before, vertexCount(t, g), "nothing is added on error")
			assert.Empty(role.AwsManagedPolicies)

			if tt.wantRef != "" {
				var ref construct.ReferenceError
				require.True(t, errors.As(err, &ref), "expected a ReferenceError, got %v", err)
				assert.Equal(tt.wantRef, ref.Ref.String())
				assert.Equal("aws:lambda_function:DynamoDbHandler", ref.Referrer.String())
			}
			if tt.wantField != "" {
				var verr construct.ValidationError
				require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
				assert.Equal(tt.wantField, verr.Field)
			}
		})
	}
}

func TestDefineCompute_roleOfWrongType(t *testing.T) {
	g, table, _, _, _ := testBackend(t)

	_, err := DefineCompute(g, ComputeParams{
		Name:    "Other",
		Runtime: "dotnetcore3.1",
		Handler: testHandler,
		Timeout: 30,
		Role:    table.Id(),
		Code:    testAsset(t),
	})
	var ref construct.ReferenceError
	require.True(t, errors.As(err, &ref), "expected a ReferenceError, got %v", err)
	assert.Equal(t, table.Id(), ref.Ref)
}

func TestLambdaFunction_EnvironmentKeys(t *testing.T) {
	fn := &LambdaFunction{Environment: map[string]string{"B": "1", "A": "2", "TABLE_NAME": "t"}}
	assert.Equal(t, []string{"A", "B", "TABLE_NAME"}, fn.EnvironmentKeys())
}
