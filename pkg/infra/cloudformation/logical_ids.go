package cloudformation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/sanitization/aws"
)

// logicalIds names every resource in the template. Resources and parameters share one namespace, so
// ids derived from a resource (its policy, its asset parameter) are claimed in the same table.
type logicalIds struct {
	byResource map[construct.ResourceId]string
	owners     map[string]string
}

var wordSeparator = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// toLogicalId joins the words of every part in UpperCamelCase. All-caps words such as HTTP methods are
// treated as ordinary words so that "POST" and "post" render the same.
func toLogicalId(parts ...string) string {
	var words []string
	for _, p := range parts {
		for _, w := range wordSeparator.Split(p, -1) {
			if w == "" {
				continue
			}
			if strings.ToUpper(w) == w {
				w = strings.ToLower(w)
			}
			words = append(words, w)
		}
	}
	return aws.LogicalIdSanitizer.Apply(strcase.ToCamel(strings.Join(words, "_")))
}

func newLogicalIds() *logicalIds {
	return &logicalIds{
		byResource: make(map[construct.ResourceId]string),
		owners:     make(map[string]string),
	}
}

// LogicalIdsFromGraph picks a logical id for every resource in `g`. A resource gets the camel-cased form of
// its logical name unless another resource renders to the same id, in which case the type is prefixed.
func LogicalIdsFromGraph(g construct.Graph) (*logicalIds, error) {
	resources, err := construct.ReverseTopologicalSort(g)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]construct.ResourceId)
	for _, r := range resources {
		name := toLogicalId(r.LogicalName())
		byName[name] = append(byName[name], r)
	}

	ids := newLogicalIds()
	for _, r := range resources {
		name := toLogicalId(r.LogicalName())
		if len(byName[name]) > 1 {
			name = toLogicalId(r.Type, r.LogicalName())
		}
		if err := ids.claim(name, r.String()); err != nil {
			return nil, err
		}
		ids.byResource[r] = name
	}
	return ids, nil
}

func (ids *logicalIds) claim(logicalId, owner string) error {
	if logicalId == "" {
		return fmt.Errorf("%s has no usable logical id", owner)
	}
	if existing, ok := ids.owners[logicalId]; ok && existing != owner {
		return fmt.Errorf("logical id %s of %s collides with %s", logicalId, owner, existing)
	}
	ids.owners[logicalId] = owner
	return nil
}

func (ids *logicalIds) Get(id construct.ResourceId) (string, error) {
	name, ok := ids.byResource[id]
	if !ok {
		return "", fmt.Errorf("no logical id for %s", id)
	}
	return name, nil
}

// derive claims the logical id of something rendered on behalf of `id`, such as a role's policy.
func (ids *logicalIds) derive(id construct.ResourceId, suffix string) (string, error) {
	base, err := ids.Get(id)
	if err != nil {
		return "", err
	}
	name := base + suffix
	return name, ids.claim(name, id.String()+"#"+suffix)
}
