package resources

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineStore(t *testing.T) {
	pk := DynamodbTableAttribute{Name: "PK", Type: types.ScalarAttributeTypeS}
	sk := DynamodbTableAttribute{Name: "SK", Type: types.ScalarAttributeTypeS}

	tests := []struct {
		name      string
		params    StoreParams
		wantField string
	}{
		{
			name:   "string keys",
			params: StoreParams{TableName: "MyCdkTable", PartitionKey: pk, SortKey: sk},
		},
		{
			name: "numeric sort key",
			params: StoreParams{
				TableName:    "events",
				PartitionKey: pk,
				SortKey:      DynamodbTableAttribute{Name: "Timestamp", Type: types.ScalarAttributeTypeN},
			},
		},
		{
			name:      "same key twice",
			params:    StoreParams{TableName: "MyCdkTable", PartitionKey: pk, SortKey: pk},
			wantField: "sort key",
		},
		{
			name:      "missing sort key",
			params:    StoreParams{TableName: "MyCdkTable", PartitionKey: pk},
			wantField: "sort key",
		},
		{
			name: "unsupported key type",
			params: StoreParams{
				TableName:    "MyCdkTable",
				PartitionKey: DynamodbTableAttribute{Name: "PK", Type: "BOOL"},
				SortKey:      sk,
			},
			wantField: "partition key type",
		},
		{
			name:      "table name too short",
			params:    StoreParams{TableName: "ab", PartitionKey: pk, SortKey: sk},
			wantField: "table name",
		},
		{
			name:      "invalid logical name",
			params:    StoreParams{TableName: "my table", PartitionKey: pk, SortKey: sk},
			wantField: "logical name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			g := construct.NewGraph()

			table, err := DefineStore(g, tt.params)
			if tt.wantField != "" {
				var verr construct.ValidationError
				require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
				assert.Equal(tt.wantField, verr.Field)
				assert.Nil(table)
				assert.Equal(0, vertexCount(t, g))
				return
			}
			require.NoError(t, err)

			assert.Equal(types.BillingModePayPerRequest, table.BillingMode)
			assert.Equal([]DynamodbTableAttribute{tt.params.PartitionKey, tt.params.SortKey}, table.Attributes)
			assert.Equal([]KeySchemaElement{
				{AttributeName: tt.params.PartitionKey.Name, KeyType: types.KeyTypeHash},
				{AttributeName: tt.params.SortKey.Name, KeyType: types.KeyTypeRange},
			}, table.KeySchema())
			assert.Nil(table.AccessPolicy)

			got, err := construct.GetResource[*DynamodbTable](g, table.Id())
			require.NoError(t, err)
			assert.Same(table, got)
		})
	}
}

func TestDefineStore_duplicate(t *testing.T) {
	g := construct.NewGraph()
	params := StoreParams{
		TableName:    "MyCdkTable",
		PartitionKey: DynamodbTableAttribute{Name: "PK", Type: "S"},
		SortKey:      DynamodbTableAttribute{Name: "SK", Type: "S"},
	}
	_, err := DefineStore(g, params)
	require.NoError(t, err)

	_, err = DefineStore(g, params)
	var dup construct.DuplicateError
	assert.True(t, errors.As(err, &dup), "expected a DuplicateError, got %v", err)
}
