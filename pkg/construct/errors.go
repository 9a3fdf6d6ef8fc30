package construct

import (
	"fmt"
	"strings"
)

type (
	// ConstructionError is implemented by every error the graph builders return so the CLI can
	// report them in a machine-readable way.
	ConstructionError interface {
		error
		// ToJSONMap returns a map that can be marshaled to JSON. Uses this instead of MarshalJSON to avoid
		// repeated marshalling of common fields (such as 'error_code').
		ToJSONMap() map[string]any
		ErrorCode() ErrorCode
	}

	ErrorCode string

	// ReferenceError is returned when a declaration points at a resource that is not (yet) part of the graph.
	ReferenceError struct {
		Referrer ResourceId
		Ref      ResourceId
	}

	// DuplicateError is returned when a logical name (or route) has already been declared.
	DuplicateError struct {
		Id     ResourceId
		Detail string
	}

	// ValidationError is returned when a stringly-typed field does not match its documented format.
	ValidationError struct {
		Resource ResourceId
		Field    string
		Value    string
		Reason   string
	}

	ErrorTree struct {
		Chain    []string    `json:"chain,omitempty"`
		Children []ErrorTree `json:"children,omitempty"`
	}
)

const (
	ReferenceInvalidCode ErrorCode = "reference_invalid"
	DuplicateCode        ErrorCode = "duplicate_resource"
	ConfigInvalidCode    ErrorCode = "config_invalid"
	BuildFailedCode      ErrorCode = "build_failed"
)

func (e ReferenceError) Error() string {
	if e.Referrer.IsZero() {
		return fmt.Sprintf("resource %s does not exist in the graph", e.Ref)
	}
	return fmt.Sprintf("%s references %s which does not exist in the graph", e.Referrer, e.Ref)
}

func (e ReferenceError) ErrorCode() ErrorCode {
	return ReferenceInvalidCode
}

func (e ReferenceError) ToJSONMap() map[string]any {
	return map[string]any{
		"referrer": e.Referrer.String(),
		"ref":      e.Ref.String(),
	}
}

func (e DuplicateError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s already declared: %s", e.Id, e.Detail)
	}
	return fmt.Sprintf("%s already declared", e.Id)
}

func (e DuplicateError) ErrorCode() ErrorCode {
	return DuplicateCode
}

func (e DuplicateError) ToJSONMap() map[string]any {
	return map[string]any{
		"resource": e.Id.String(),
		"detail":   e.Detail,
	}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s %q: %s", e.Resource, e.Field, e.Value, e.Reason)
}

func (e ValidationError) ErrorCode() ErrorCode {
	return ConfigInvalidCode
}

func (e ValidationError) ToJSONMap() map[string]any {
	return map[string]any{
		"resource": e.Resource.String(),
		"field":    e.Field,
		"value":    e.Value,
		"reason":   e.Reason,
	}
}

type (
	chainErr interface {
		error
		Unwrap() error
	}
	joinErr interface {
		error
		Unwrap() []error
	}
)

func unwrapChain(err error) (chain []string, last joinErr) {
	for current := err; current != nil; {
		var next error
		cc, ok := current.(chainErr)
		if ok {
			next = cc.Unwrap()
		} else {
			joined, ok := current.(joinErr)
			if ok {
				jerrs := joined.Unwrap()
				if len(jerrs) == 1 {
					next = jerrs[0]
				} else {
					last = joined
					return
				}
			} else {
				chain = append(chain, current.Error())
				return
			}
		}
		if next == nil {
			chain = append(chain, current.Error())
			return
		}
		msg := strings.TrimSuffix(strings.TrimSuffix(current.Error(), next.Error()), ": ")
		if msg != "" {
			chain = append(chain, msg)
		}
		current = next
	}
	return
}

// ErrorsToTree splits a wrapped / joined error into its message chain and children so that
// multi-error results can be printed one cause per line.
func ErrorsToTree(err error) (tree ErrorTree) {
	if err == nil {
		return
	}
	if t, ok := err.(ErrorTree); ok {
		return t
	}

	var joined joinErr
	tree.Chain, joined = unwrapChain(err)

	if joined != nil {
		errs := joined.Unwrap()
		tree.Children = make([]ErrorTree, len(errs))
		for i, e := range errs {
			tree.Children[i] = ErrorsToTree(e)
		}
	}
	return
}

func (t ErrorTree) Error() string {
	sb := &strings.Builder{}
	t.print(sb, 0, 0)
	return sb.String()
}

func (t ErrorTree) print(out *strings.Builder, indent int, childChar rune) {
	prefix := strings.Repeat("\t", indent)
	delim := ""
	if childChar != 0 {
		delim = string(childChar) + " "
	}
	fmt.Fprintf(out, "%s%s%s\n", prefix, delim, strings.Join(t.Chain, ": "))
	for i, child := range t.Children {
		char := '├'
		if i == len(t.Children)-1 {
			char = '└'
		}
		child.print(out, indent+1, char)
	}
}
