package stack

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/bundling"
	"github.com/klothoplatform/kvstack/pkg/config"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/logging"
	"github.com/klothoplatform/kvstack/pkg/provider/aws/resources"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Stack is the result of one provisioning pass: the resource graph plus direct handles on the
	// declarations it is made of.
	Stack struct {
		Name  string
		Graph construct.Graph

		Store           *resources.DynamodbTable
		HandlerRole     *resources.IamRole
		IntegrationRole *resources.IamRole
		Compute         *resources.LambdaFunction
		FrontDoor       *resources.RestApi
		Routes          []*resources.ApiMethod

		log *zap.Logger
	}

	Summary struct {
		Stores       int `json:"stores" yaml:"stores"`
		Identities   int `json:"identities" yaml:"identities"`
		ComputeUnits int `json:"compute_units" yaml:"compute_units"`
		FrontDoors   int `json:"front_doors" yaml:"front_doors"`
		Routes       int `json:"routes" yaml:"routes"`
		Grants       int `json:"grants" yaml:"grants"`
	}

	phase struct {
		name  string
		build func(cfg config.Stack) error
	}
)

// Build declares every resource of `cfg` in a single pass: the store, the identities, the compute
// unit, the front door with its routes, then the grants between them. Each declaration only refers to
// ones made before it. The first failure aborts the pass and no stack is returned.
func Build(ctx context.Context, cfg config.Stack) (*Stack, error) {
	s := &Stack{
		Name:  cfg.Name,
		Graph: construct.NewGraph(),
		log:   logging.GetLogger(ctx).Named("stack").With(zap.String("stack", cfg.Name)),
	}

	phases := []phase{
		{"store", s.defineStore},
		{"identities", s.defineIdentities},
		{"compute", s.defineCompute},
		{"front door", s.defineFrontDoor},
		{"grants", s.wireGrants},
	}
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.build(cfg); err != nil {
			s.log.Debug("aborting build", zap.String("phase", p.name), zap.Error(err))
			return nil, fmt.Errorf("could not build %s of stack %s: %w", p.name, cfg.Name, err)
		}
	}

	summary, err := s.Summary()
	if err != nil {
		return nil, err
	}
	resourceCount, edgeCount, err := construct.Counts(s.Graph)
	if err != nil {
		return nil, err
	}
	hash, err := construct.Hash(s.Graph)
	if err != nil {
		return nil, err
	}
	s.log.Info("Built stack",
		zap.Object("summary", summary),
		zap.Int("resources", resourceCount),
		zap.Int("edges", edgeCount),
		zap.String("graph_hash", hex.EncodeToString(hash)),
	)
	return s, nil
}

func (s *Stack) declared(id construct.ResourceId) {
	s.log.Debug("Declared resource", logging.ResourceField(id.Provider, id.Type, id.LogicalName()))
}

func (s *Stack) defineStore(cfg config.Stack) error {
	table, err := resources.DefineStore(s.Graph, resources.StoreParams{
		TableName:    cfg.Store.TableName,
		PartitionKey: attribute(cfg.Store.PartitionKey),
		SortKey:      attribute(cfg.Store.SortKey),
	})
	if err != nil {
		return err
	}
	s.Store = table
	s.declared(table.Id())
	return nil
}

func attribute(key config.Key) resources.DynamodbTableAttribute {
	return resources.DynamodbTableAttribute{Name: key.Name, Type: key.Type}
}

func (s *Stack) defineIdentities(cfg config.Stack) error {
	for _, ident := range []struct {
		cfg  config.Identity
		dest **resources.IamRole
	}{
		{cfg.HandlerRole, &s.HandlerRole},
		{cfg.IntegrationRole, &s.IntegrationRole},
	} {
		role, err := resources.DefineIdentity(s.Graph, resources.IdentityParams{
			Name:           ident.cfg.Name,
			RoleName:       ident.cfg.RoleName,
			Description:    ident.cfg.Description,
			TrustPrincipal: ident.cfg.TrustPrincipal,
		})
		if err != nil {
			return err
		}
		*ident.dest = role
		s.declared(role.Id())
	}
	return nil
}

func (s *Stack) defineCompute(cfg config.Stack) error {
	code, err := bundling.NewAsset(cfg.SourcePath(), cfg.Compute.Toolchain)
	if err != nil {
		return err
	}
	if code.Entry, err = s.entryArtifact(cfg); err != nil {
		return err
	}
	fn, err := resources.DefineCompute(s.Graph, resources.ComputeParams{
		Name:        cfg.Compute.Name,
		Runtime:     cfg.Compute.Runtime,
		Handler:     cfg.Compute.Handler,
		Timeout:     cfg.Compute.Timeout,
		MemorySize:  cfg.Compute.MemorySize,
		Environment: cfg.Compute.Environment,
		Role:        s.HandlerRole.Id(),
		Store:       s.Store.Id(),
		Code:        code,
	})
	if err != nil {
		return err
	}
	s.Compute = fn
	s.declared(fn.Id())
	return nil
}

// entryArtifact reads the assembly name out of the handler's project, when there is one, and checks the
// handler refers to it. Without a project the entry is derived from the handler later.
func (s *Stack) entryArtifact(cfg config.Stack) (string, error) {
	if !strings.HasPrefix(cfg.Compute.Runtime, "dotnet") {
		return "", nil
	}
	project, err := bundling.InspectProject(cfg.SourcePath())
	if errors.Is(err, bundling.ErrNoProject) {
		s.log.Debug("No project file for handler", zap.String("source", cfg.SourcePath()))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	assembly, _, _ := strings.Cut(cfg.Compute.Handler, "::")
	if assembly != project.AssemblyName {
		return "", construct.ValidationError{
			Resource: construct.ResourceId{Provider: resources.AWS_PROVIDER, Type: resources.LAMBDA_FUNCTION_TYPE, Name: cfg.Compute.Name},
			Field:    "handler",
			Value:    cfg.Compute.Handler,
			Reason:   fmt.Sprintf("assembly %q does not match %s, which builds %q", assembly, project.File, project.AssemblyName),
		}
	}
	return project.EntryArtifact(), nil
}

func (s *Stack) defineFrontDoor(cfg config.Stack) error {
	api, err := resources.DefineFrontDoor(s.Graph, resources.FrontDoorParams{
		Name:        cfg.FrontDoor.Name,
		Description: cfg.FrontDoor.Description,
		StageName:   cfg.FrontDoor.StageName,
		Role:        s.IntegrationRole.Id(),
	})
	if err != nil {
		return err
	}
	s.FrontDoor = api
	s.declared(api.Id())

	if cfg.FrontDoor.RootMethod != "" {
		if _, err := resources.AddRootMethod(s.Graph, api, cfg.FrontDoor.RootMethod); err != nil {
			return err
		}
	}
	for _, route := range cfg.FrontDoor.Routes {
		target := s.Compute.Id()
		if route.Target != "" {
			target = construct.ResourceId{Provider: resources.AWS_PROVIDER, Type: resources.LAMBDA_FUNCTION_TYPE, Name: route.Target}
		}
		method, err := resources.AddRoute(s.Graph, api, route.Method, route.Path, target)
		if err != nil {
			return err
		}
		s.Routes = append(s.Routes, method)
		s.log.Debug("Added route", zap.String("route", method.RouteKey()), logging.EdgeField(method.Id().String(), target.String()))
	}
	return nil
}

// wireGrants lets the handler's identity use the table and the front door's identity invoke the handler.
func (s *Stack) wireGrants(cfg config.Stack) error {
	if err := resources.GrantReadWrite(s.Graph, s.Store.Id(), s.HandlerRole.Id()); err != nil {
		return err
	}
	if err := resources.GrantInvoke(s.Graph, s.Compute.Id(), s.IntegrationRole.Id()); err != nil {
		return err
	}
	grants, err := resources.Grants(s.Graph)
	if err != nil {
		return err
	}
	for _, g := range grants {
		s.log.Debug("Granted", logging.EdgeField(g.Grantee.String(), g.Grantor.String()), zap.Strings("actions", g.Actions))
	}
	return nil
}

// Summary counts the declarations in the graph.
func (s *Stack) Summary() (Summary, error) {
	var sum Summary
	var err error
	count := func(n int, e error) int {
		if e != nil && err == nil {
			err = e
		}
		return n
	}
	sum.Stores = count(countOf[*resources.DynamodbTable](s.Graph))
	sum.Identities = count(countOf[*resources.IamRole](s.Graph))
	sum.ComputeUnits = count(countOf[*resources.LambdaFunction](s.Graph))
	sum.FrontDoors = count(countOf[*resources.RestApi](s.Graph))

	methods, e := construct.ResourcesOfType[*resources.ApiMethod](s.Graph)
	count(0, e)
	for _, m := range methods {
		if m.IsRoute() {
			sum.Routes++
		}
	}
	grants, e := construct.EdgesOfKind(s.Graph, construct.GrantEdge)
	sum.Grants = count(len(grants), e)
	return sum, err
}

func countOf[T construct.Resource](g construct.Graph) (int, error) {
	rs, err := construct.ResourcesOfType[T](g)
	return len(rs), err
}

func (sum Summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("stores", sum.Stores)
	enc.AddInt("identities", sum.Identities)
	enc.AddInt("compute_units", sum.ComputeUnits)
	enc.AddInt("front_doors", sum.FrontDoors)
	enc.AddInt("routes", sum.Routes)
	enc.AddInt("grants", sum.Grants)
	return nil
}
