package resources

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/construct"
)

const VERSION = "2012-10-17"

type (
	PolicyDocument struct {
		Version   string           `yaml:"version"`
		Statement []StatementEntry `yaml:"statement"`
	}

	StatementEntry struct {
		Effect    string     `yaml:"effect"`
		Action    []string   `yaml:"action"`
		Resource  []AttrRef  `yaml:"resource,omitempty"`
		Principal *Principal `yaml:"principal,omitempty"`
	}

	// Principal is either a service (for trust policies) or a role declared in the graph (for grants).
	Principal struct {
		Service string               `yaml:"service,omitempty"`
		Role    construct.ResourceId `yaml:"role,omitempty"`
	}

	// AttrRef points at an attribute of a resource in the graph, such as its ARN. Suffix is appended to
	// the resolved value to cover sub-resources (table indexes, function versions).
	AttrRef struct {
		Resource  construct.ResourceId `yaml:"resource"`
		Attribute string               `yaml:"attribute"`
		Suffix    string               `yaml:"suffix,omitempty"`
	}
)

func (p Principal) String() string {
	if p.Service != "" {
		return "service:" + p.Service
	}
	return "role:" + p.Role.String()
}

func (r AttrRef) String() string {
	return fmt.Sprintf("%s#%s%s", r.Resource, r.Attribute, r.Suffix)
}

// Id identifies a statement by its principal, effect, sorted actions and sorted resources. Two
// statements with the same id grant exactly the same thing.
func (s StatementEntry) Id() construct.ResourceId {
	hash := sha256.New()
	resources := make([]string, len(s.Resource))
	for i, r := range s.Resource {
		resources[i] = r.String()
	}
	sort.Strings(resources)
	for _, r := range resources {
		_, _ = fmt.Fprintf(hash, "%s\n", r)
	}
	if s.Principal != nil {
		_, _ = fmt.Fprintf(hash, "%s\n", s.Principal)
	}

	actions := append([]string(nil), s.Action...)
	sort.Strings(actions)

	return construct.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IAM_STATEMENT_ENTRY,
		Name:     fmt.Sprintf("%x/%s/%s", hash.Sum(nil)[:8], s.Effect, strings.Join(actions, ",")),
	}
}

// AddStatement appends `stmt` (with its actions sorted) unless an identical statement is already present.
// Returns whether the document changed.
func (d *PolicyDocument) AddStatement(stmt StatementEntry) bool {
	id := stmt.Id()
	for _, existing := range d.Statement {
		if existing.Id() == id {
			return false
		}
	}
	stmt.Action = append([]string(nil), stmt.Action...)
	sort.Strings(stmt.Action)
	d.Statement = append(d.Statement, stmt)
	return true
}

// StatementsFor returns the statements whose principal is the role `role`.
func (d *PolicyDocument) StatementsFor(role construct.ResourceId) []StatementEntry {
	if d == nil {
		return nil
	}
	var result []StatementEntry
	for _, stmt := range d.Statement {
		if stmt.Principal != nil && stmt.Principal.Role == role {
			result = append(result, stmt)
		}
	}
	return result
}

// AssumeRolePolicy returns a trust policy allowing exactly one service to assume the role.
func AssumeRolePolicy(service string) *PolicyDocument {
	return &PolicyDocument{
		Version: VERSION,
		Statement: []StatementEntry{
			{
				Action: []string{"sts:AssumeRole"},
				Principal: &Principal{
					Service: service,
				},
				Effect: "Allow",
			},
		},
	}
}
