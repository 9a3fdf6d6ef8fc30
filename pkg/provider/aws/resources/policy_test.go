package resources

import (
	"testing"

	"github.com/klothoplatform/kvstack/pkg/construct/graphtest"
	"github.com/stretchr/testify/assert"
)

func TestStatementEntry_Id(t *testing.T) {
	role := graphtest.ParseId(t, "aws:iam_role:DynamoDbHandlerRole")
	other := graphtest.ParseId(t, "aws:iam_role:ApiGatewayIntegrationRole")
	table := graphtest.ParseId(t, "aws:dynamodb_table:MyCdkTable")

	base := StatementEntry{
		Effect:    "Allow",
		Action:    []string{"dynamodb:PutItem", "dynamodb:GetItem"},
		Resource:  []AttrRef{{Resource: table, Attribute: ARN_ATTRIBUTE}},
		Principal: &Principal{Role: role},
	}

	tests := []struct {
		name     string
		stmt     StatementEntry
		wantSame bool
	}{
		{
			name: "action order does not matter",
			stmt: StatementEntry{
				Effect:    "Allow",
				Action:    []string{"dynamodb:GetItem", "dynamodb:PutItem"},
				Resource:  base.Resource,
				Principal: &Principal{Role: role},
			},
			wantSame: true,
		},
		{
			name: "different principal",
			stmt: StatementEntry{
				Effect:    "Allow",
				Action:    base.Action,
				Resource:  base.Resource,
				Principal: &Principal{Role: other},
			},
		},
		{
			name: "different resource suffix",
			stmt: StatementEntry{
				Effect:    "Allow",
				Action:    base.Action,
				Resource:  []AttrRef{{Resource: table, Attribute: ARN_ATTRIBUTE, Suffix: "/index/*"}},
				Principal: base.Principal,
			},
		},
		{
			name: "different effect",
			stmt: StatementEntry{
				Effect:    "Deny",
				Action:    base.Action,
				Resource:  base.Resource,
				Principal: base.Principal,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantSame {
				assert.Equal(t, base.Id(), tt.stmt.Id())
			} else {
				assert.NotEqual(t, base.Id(), tt.stmt.Id())
			}
		})
	}
}

func TestPolicyDocument_AddStatement(t *testing.T) {
	assert := assert.New(t)
	role := graphtest.ParseId(t, "aws:iam_role:DynamoDbHandlerRole")
	doc := &PolicyDocument{Version: VERSION}

	assert.True(doc.AddStatement(StatementEntry{
		Effect:    "Allow",
		Action:    []string{"b", "a"},
		Principal: &Principal{Role: role},
	}))
	assert.False(doc.AddStatement(StatementEntry{
		Effect:    "Allow",
		Action:    []string{"a", "b"},
		Principal: &Principal{Role: role},
	}))
	assert.Len(doc.Statement, 1)
	assert.Equal([]string{"a", "b"}, doc.Statement[0].Action)

	assert.Len(doc.StatementsFor(role), 1)
	assert.Empty(doc.StatementsFor(graphtest.ParseId(t, "aws:iam_role:Other")))
	assert.Empty((*PolicyDocument)(nil).StatementsFor(role))
}

func TestAssumeRolePolicy(t *testing.T) {
	doc := AssumeRolePolicy(LAMBDA_SERVICE_PRINCIPAL)
	assert.Equal(t, VERSION, doc.Version)
	assert.Equal(t, []StatementEntry{{
		Effect:    "Allow",
		Action:    []string{"sts:AssumeRole"},
		Principal: &Principal{Service: LAMBDA_SERVICE_PRINCIPAL},
	}}, doc.Statement)
}
