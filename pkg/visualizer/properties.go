package visualizer

import (
	"reflect"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/provider/aws/resources"
)

type (
	// FetchPropertiesFunc is a function that takes a resource of some type, and returns some properties for it.
	FetchPropertiesFunc[K construct.Resource] func(res K) map[string]any

	// propertiesFetcher takes a [construct.Resource] and returns some properties for it. This is similar to
	// FetchPropertiesFunc, except that the argument is always a construct.Resource (as opposed to a specific subtype).
	propertiesFetcher interface {
		apply(res construct.Resource) map[string]any
	}

	// typedPropertiesFetcher is a propertiesFetcher that can also tell you which type it'll accept.
	//
	// We use this as a convenience bridge: in the absence of wildcard generics in Go (e.g., "FetchPropertiesFunc[*]"),
	// we can treat a "FetchPropertiesFunc[K]" as a typedPropertiesFetcher, and build a list of heterogeneous fetchers.
	typedPropertiesFetcher interface {
		propertiesFetcher
		reflectType() reflect.Type
	}

	byTypePropertiesFetcher map[reflect.Type]propertiesFetcher
)

// TypeFor is the type a resource is shown as. Methods that forward to a function are shown as routes.
func TypeFor(res construct.Resource) string {
	resType := res.Id().Type
	switch res := res.(type) {
	case *resources.ApiMethod:
		if res.IsRoute() {
			resType = "route"
		}
	}
	return resType
}

// ShapeFor is the graphviz node shape of a resource.
func ShapeFor(res construct.Resource) string {
	switch res.(type) {
	case *resources.DynamodbTable:
		return "cylinder"
	case *resources.IamRole:
		return "hexagon"
	case *resources.LambdaFunction:
		return "component"
	case *resources.ApiMethod:
		return "cds"
	default:
		return "box"
	}
}

func tableProperties(res *resources.DynamodbTable) map[string]any {
	return map[string]any{
		"partition_key": res.HashKey,
		"sort_key":      res.RangeKey,
		"billing_mode":  string(res.BillingMode),
	}
}

func roleProperties(res *resources.IamRole) map[string]any {
	props := map[string]any{
		"trusted_principal": res.TrustedPrincipal(),
	}
	if len(res.AwsManagedPolicies) > 0 {
		props["managed_policies"] = res.AwsManagedPolicies
	}
	return props
}

func functionProperties(res *resources.LambdaFunction) map[string]any {
	return map[string]any{
		"runtime":     res.Runtime,
		"handler":     res.Handler,
		"timeout":     res.Timeout,
		"environment": res.EnvironmentKeys(),
	}
}

func restApiProperties(res *resources.RestApi) map[string]any {
	return map[string]any{
		"stage": res.StageName,
	}
}

func methodProperties(res *resources.ApiMethod) map[string]any {
	return map[string]any{
		"route":       res.RouteKey(),
		"integration": res.Integration.Type,
	}
}

func defaultPropertiesFetchers() byTypePropertiesFetcher {
	var all []typedPropertiesFetcher
	// BEGIN Add your property fetchers here
	all = append(all, asApplier(tableProperties))
	all = append(all, asApplier(roleProperties))
	all = append(all, asApplier(functionProperties))
	all = append(all, asApplier(restApiProperties))
	all = append(all, asApplier(methodProperties))
	// END

	result := make(map[reflect.Type]propertiesFetcher, len(all))
	for _, pf := range all {
		result[pf.reflectType()] = pf
	}

	return result
}

func asApplier[K construct.Resource](f FetchPropertiesFunc[K]) typedPropertiesFetcher {
	return f
}

func (f FetchPropertiesFunc[K]) apply(res construct.Resource) map[string]any {
	if res, ok := res.(K); ok {
		return f(res)
	}
	return nil
}

func (pf byTypePropertiesFetcher) apply(res construct.Resource) map[string]any {
	resType := reflect.TypeOf(res)
	if f := pf[resType]; f != nil {
		return f.apply(res)
	}
	return nil
}

func (f FetchPropertiesFunc[K]) reflectType() reflect.Type {
	return reflect.TypeOf((*K)(nil)).Elem()
}
