package resources

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/sanitization/aws"
)

type (
	// DynamodbTable is the store. Its name is both the logical name in the graph and the physical table
	// name, so handlers receive exactly the declared name.
	DynamodbTable struct {
		Name        string                   `yaml:"name"`
		Attributes  []DynamodbTableAttribute `yaml:"attributes"`
		BillingMode types.BillingMode        `yaml:"billing_mode"`
		HashKey     string                   `yaml:"hash_key"`
		RangeKey    string                   `yaml:"range_key"`
		// AccessPolicy holds the statements granting identities access to this table.
		AccessPolicy *PolicyDocument `yaml:"access_policy,omitempty"`
	}

	DynamodbTableAttribute struct {
		Name string                    `yaml:"name"`
		Type types.ScalarAttributeType `yaml:"type"`
	}

	KeySchemaElement struct {
		AttributeName string        `yaml:"attribute_name"`
		KeyType       types.KeyType `yaml:"key_type"`
	}

	StoreParams struct {
		TableName    string
		PartitionKey DynamodbTableAttribute
		SortKey      DynamodbTableAttribute
	}
)

func (table *DynamodbTable) Id() construct.ResourceId {
	return construct.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     DYNAMODB_TABLE_TYPE,
		Name:     table.Name,
	}
}

func (table *DynamodbTable) KeySchema() []KeySchemaElement {
	return []KeySchemaElement{
		{AttributeName: table.HashKey, KeyType: types.KeyTypeHash},
		{AttributeName: table.RangeKey, KeyType: types.KeyTypeRange},
	}
}

func validAttributeType(t types.ScalarAttributeType) bool {
	for _, v := range t.Values() {
		if v == t {
			return true
		}
	}
	return false
}

// DefineStore declares an on-demand table keyed by a partition and a sort key.
func DefineStore(g construct.Graph, params StoreParams) (*DynamodbTable, error) {
	table := &DynamodbTable{
		Name:        params.TableName,
		BillingMode: types.BillingModePayPerRequest,
		HashKey:     params.PartitionKey.Name,
		RangeKey:    params.SortKey.Name,
		Attributes:  []DynamodbTableAttribute{params.PartitionKey, params.SortKey},
	}
	id := table.Id()

	if err := validateLogicalName(id); err != nil {
		return nil, err
	}
	if err := aws.DynamodbTableNameValidator.Check(params.TableName); err != nil {
		return nil, construct.ValidationError{Resource: id, Field: "table name", Value: params.TableName, Reason: err.Error()}
	}
	for _, key := range []struct {
		field string
		attr  DynamodbTableAttribute
	}{
		{"partition key", params.PartitionKey},
		{"sort key", params.SortKey},
	} {
		if err := aws.DynamodbAttributeNameValidator.Check(key.attr.Name); err != nil {
			return nil, construct.ValidationError{Resource: id, Field: key.field, Value: key.attr.Name, Reason: err.Error()}
		}
		if !validAttributeType(key.attr.Type) {
			return nil, construct.ValidationError{
				Resource: id,
				Field:    key.field + " type",
				Value:    string(key.attr.Type),
				Reason:   fmt.Sprintf("must be one of %v", types.ScalarAttributeType("").Values()),
			}
		}
	}
	if params.PartitionKey.Name == params.SortKey.Name {
		return nil, construct.ValidationError{
			Resource: id,
			Field:    "sort key",
			Value:    params.SortKey.Name,
			Reason:   "must differ from the partition key",
		}
	}

	if err := construct.AddResource(g, table); err != nil {
		return nil, err
	}
	return table, nil
}
