package resources

import (
	"testing"

	"github.com/klothoplatform/kvstack/pkg/bundling"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/stretchr/testify/require"
)

const (
	testHandler = "DynamoDbLambda::DynamoDbLambda.Function::FunctionHandler"
	testSource  = "code/src/DynamoDbLambda"
)

func testAsset(t *testing.T) bundling.Asset {
	t.Helper()
	asset, err := bundling.NewAsset(testSource, bundling.DotnetLambdaTools)
	require.NoError(t, err)
	return asset
}

// testBackend declares the table, both identities and the function the other tests build on.
func testBackend(t *testing.T) (construct.Graph, *DynamodbTable, *IamRole, *IamRole, *LambdaFunction) {
	t.Helper()
	g := construct.NewGraph()
	table, err := DefineStore(g, StoreParams{
		TableName:    "MyCdkTable",
		PartitionKey: DynamodbTableAttribute{Name: "PK", Type: "S"},
		SortKey:      DynamodbTableAttribute{Name: "SK", Type: "S"},
	})
	require.NoError(t, err)
	handlerRole, err := DefineIdentity(g, IdentityParams{
		Name:           "DynamoDbHandlerRole",
		Description:    "Role assumed by the DynamoDbLambdaFunction",
		TrustPrincipal: LAMBDA_SERVICE_PRINCIPAL,
	})
	require.NoError(t, err)
	apiRole, err := DefineIdentity(g, IdentityParams{
		Name:           "ApiGatewayIntegrationRole",
		TrustPrincipal: API_GATEWAY_SERVICE_PRINCIPAL,
	})
	require.NoError(t, err)
	fn, err := DefineCompute(g, ComputeParams{
		Name:    "DynamoDbHandler",
		Runtime: "dotnetcore3.1",
		Handler: testHandler,
		Timeout: 30,
		Role:    handlerRole.Id(),
		Store:   table.Id(),
		Code:    testAsset(t),
	})
	require.NoError(t, err)
	return g, table, handlerRole, apiRole, fn
}

func vertexCount(t *testing.T, g construct.Graph) int {
	t.Helper()
	order, _, err := construct.Counts(g)
	require.NoError(t, err)
	return order
}
