package cloudformation

import (
	"testing"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/construct/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_toLogicalId(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "already camel", parts: []string{"MyCdkTable"}, want: "MyCdkTable"},
		{name: "namespaced", parts: []string{"CdkApi/create"}, want: "CdkApiCreate"},
		{name: "method", parts: []string{"CdkApi/POST:/create"}, want: "CdkApiPostCreate"},
		{name: "root method", parts: []string{"CdkApi/ANY:/"}, want: "CdkApiAny"},
		{name: "path parameter", parts: []string{"CdkApi/items/{id}"}, want: "CdkApiItemsId"},
		{name: "dashes", parts: []string{"my-table"}, want: "MyTable"},
		{name: "type prefix", parts: []string{"dynamodb_table", "orders"}, want: "DynamodbTableOrders"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toLogicalId(tt.parts...))
		})
	}
}

func TestLogicalIdsFromGraph(t *testing.T) {
	makegraph := func(elements ...string) construct.Graph {
		return graphtest.MakeGraph(t, elements...)
	}
	tests := []struct {
		name    string
		graph   construct.Graph
		want    map[string]string
		wantErr bool
	}{
		{
			name: "simple",
			graph: makegraph(
				"aws:type_a:res_a",
				"aws:type_b:res_b",
			),
			want: map[string]string{
				"aws:type_a:res_a": "ResA",
				"aws:type_b:res_b": "ResB",
			},
		},
		{
			name: "same id, different type",
			graph: makegraph(
				"aws:type_a:my-res",
				"aws:type_b:my_res",
			),
			want: map[string]string{
				"aws:type_a:my-res": "TypeAMyRes",
				"aws:type_b:my_res": "TypeBMyRes",
			},
		},
		{
			name: "namespaces are part of the id",
			graph: makegraph(
				"aws:type_c:ns1:res",
				"aws:type_c:ns2:res",
			),
			want: map[string]string{
				"aws:type_c:ns1:res": "Ns1Res",
				"aws:type_c:ns2:res": "Ns2Res",
			},
		},
		{
			name: "same id, same type",
			graph: makegraph(
				"aws:type_a:my-res",
				"aws:type_a:my.res",
			),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := LogicalIdsFromGraph(tt.graph)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for rid, want := range tt.want {
				got, err := ids.Get(graphtest.ParseId(t, rid))
				require.NoError(t, err)
				assert.Equal(t, want, got, rid)
			}
		})
	}
}

func TestLogicalIds_derive(t *testing.T) {
	g := graphtest.MakeGraph(t, "aws:iam_role:Reader", "aws:iam_role:ReaderDefault")
	ids, err := LogicalIdsFromGraph(g)
	require.NoError(t, err)

	reader := graphtest.ParseId(t, "aws:iam_role:Reader")
	name, err := ids.derive(reader, "Policy")
	require.NoError(t, err)
	assert.Equal(t, "ReaderPolicy", name)

	// Deriving the same id again is not a collision.
	_, err = ids.derive(reader, "Policy")
	assert.NoError(t, err)

	_, err = ids.derive(reader, "Default")
	assert.ErrorContains(t, err, "collides with aws:iam_role:ReaderDefault")
}
