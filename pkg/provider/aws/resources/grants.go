package resources

import (
	"fmt"

	"github.com/klothoplatform/kvstack/pkg/construct"
)

// DYNAMODB_READ_WRITE_ACTIONS is the data-plane read and write set. Table administration actions are not
// included.
var DYNAMODB_READ_WRITE_ACTIONS = []string{
	"dynamodb:BatchGetItem",
	"dynamodb:GetRecords",
	"dynamodb:GetShardIterator",
	"dynamodb:Query",
	"dynamodb:GetItem",
	"dynamodb:Scan",
	"dynamodb:ConditionCheckItem",
	"dynamodb:BatchWriteItem",
	"dynamodb:PutItem",
	"dynamodb:UpdateItem",
	"dynamodb:DeleteItem",
	"dynamodb:DescribeTable",
}

var LAMBDA_INVOKE_ACTIONS = []string{"lambda:InvokeFunction"}

type Grant struct {
	Grantor construct.ResourceId
	Grantee construct.ResourceId
	Actions []string
}

// GrantReadWrite allows `identity` to read and write items in `table`.
func GrantReadWrite(g construct.Graph, table, identity construct.ResourceId) error {
	t, err := construct.GetResource[*DynamodbTable](g, table)
	if err != nil {
		return referenceError(identity, table, err)
	}
	return grant(g, &t.AccessPolicy, Grant{Grantor: table, Grantee: identity, Actions: DYNAMODB_READ_WRITE_ACTIONS},
		[]AttrRef{{Resource: table, Attribute: ARN_ATTRIBUTE}},
	)
}

// GrantInvoke allows `identity` to invoke the function `fn`, including any of its versions.
func GrantInvoke(g construct.Graph, fn, identity construct.ResourceId) error {
	f, err := construct.GetResource[*LambdaFunction](g, fn)
	if err != nil {
		return referenceError(identity, fn, err)
	}
	return grant(g, &f.AccessPolicy, Grant{Grantor: fn, Grantee: identity, Actions: LAMBDA_INVOKE_ACTIONS},
		[]AttrRef{
			{Resource: fn, Attribute: ARN_ATTRIBUTE},
			{Resource: fn, Attribute: ARN_ATTRIBUTE, Suffix: ":*"},
		},
	)
}

// grant records the grant as an edge from the grantee to the grantor and as a statement in the grantor's
// access policy. Repeating a grant changes neither.
func grant(g construct.Graph, policy **PolicyDocument, gr Grant, resources []AttrRef) error {
	if _, err := construct.GetResource[*IamRole](g, gr.Grantee); err != nil {
		return referenceError(gr.Grantor, gr.Grantee, err)
	}
	if _, err := construct.AddGrantEdge(g, gr.Grantee, gr.Grantor, gr.Actions); err != nil {
		return fmt.Errorf("could not grant %s to %s: %w", gr.Grantor, gr.Grantee, err)
	}
	if *policy == nil {
		*policy = &PolicyDocument{Version: VERSION}
	}
	(*policy).AddStatement(StatementEntry{
		Effect:    "Allow",
		Action:    gr.Actions,
		Resource:  resources,
		Principal: &Principal{Role: gr.Grantee},
	})
	return nil
}

// Grants returns every grant recorded in the graph, sorted by grantee then grantor.
func Grants(g construct.Graph) ([]Grant, error) {
	edges, err := construct.EdgesOfKind(g, construct.GrantEdge)
	if err != nil {
		return nil, err
	}
	grants := make([]Grant, len(edges))
	for i, e := range edges {
		grants[i] = Grant{
			Grantor: e.Target,
			Grantee: e.Source,
			Actions: construct.EdgeDataOf(e).Actions,
		}
	}
	return grants, nil
}
