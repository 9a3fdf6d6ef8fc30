package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/kvstack/pkg/bundling"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/r3labs/diff"
	"gopkg.in/yaml.v3"
)

type (
	// Stack declares one backend: a table, the identities of the handler and of the API, the handler
	// itself and the front door routing to it.
	Stack struct {
		Name string `json:"name" yaml:"name" toml:"name"`

		// Format is what format the file was originally in so that when the resolved configuration is
		// written out, it keeps the same format.
		Format string `json:"-" yaml:"-" toml:"-"`
		// Dir is the directory relative paths are resolved against.
		Dir string `json:"-" yaml:"-" toml:"-"`

		Store           Store     `json:"store" yaml:"store" toml:"store"`
		HandlerRole     Identity  `json:"handler_role" yaml:"handler_role" toml:"handler_role"`
		IntegrationRole Identity  `json:"integration_role" yaml:"integration_role" toml:"integration_role"`
		Compute         Compute   `json:"compute" yaml:"compute" toml:"compute"`
		FrontDoor       FrontDoor `json:"front_door" yaml:"front_door" toml:"front_door"`
	}

	Store struct {
		TableName    string `json:"table_name" yaml:"table_name" toml:"table_name"`
		PartitionKey Key    `json:"partition_key" yaml:"partition_key" toml:"partition_key"`
		SortKey      Key    `json:"sort_key" yaml:"sort_key" toml:"sort_key"`
	}

	Key struct {
		Name string `json:"name" yaml:"name" toml:"name"`
		// Type accepts the DynamoDB scalar types (S, N, B) as well as their long names.
		Type types.ScalarAttributeType `json:"type" yaml:"type" toml:"type"`
	}

	Identity struct {
		Name           string `json:"name" yaml:"name" toml:"name"`
		RoleName       string `json:"role_name,omitempty" yaml:"role_name,omitempty" toml:"role_name,omitempty"`
		Description    string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
		TrustPrincipal string `json:"trust_principal" yaml:"trust_principal" toml:"trust_principal"`
	}

	Compute struct {
		Name        string            `json:"name" yaml:"name" toml:"name"`
		Runtime     string            `json:"runtime" yaml:"runtime" toml:"runtime"`
		Handler     string            `json:"handler" yaml:"handler" toml:"handler"`
		Timeout     int               `json:"timeout" yaml:"timeout" toml:"timeout"` // seconds
		MemorySize  int               `json:"memory_size,omitempty" yaml:"memory_size,omitempty" toml:"memory_size,omitempty"`
		Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty" toml:"environment,omitempty"`
		// Source is the handler's source directory. Relative paths are relative to the configuration file.
		Source    string             `json:"source" yaml:"source" toml:"source"`
		Toolchain bundling.Toolchain `json:"toolchain,omitempty" yaml:"toolchain,omitempty" toml:"toolchain,omitempty"`
	}

	FrontDoor struct {
		Name        string `json:"name" yaml:"name" toml:"name"`
		Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
		StageName   string `json:"stage_name" yaml:"stage_name" toml:"stage_name"`
		// RootMethod is answered on `/` without reaching the handler. Empty means no root method.
		RootMethod string  `json:"root_method,omitempty" yaml:"root_method,omitempty" toml:"root_method,omitempty"`
		Routes     []Route `json:"routes" yaml:"routes" toml:"routes"`
	}

	// Route forwards requests for Method and Path to Target, the handler when empty.
	Route struct {
		Method string `json:"method" yaml:"method" toml:"method"`
		Path   string `json:"path" yaml:"path" toml:"path"`
		Target string `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	}
)

// Default returns the stack deployed when no configuration is given.
func Default() Stack {
	return Stack{
		Name: "kvstack",
		Store: Store{
			TableName:    "MyCdkTable",
			PartitionKey: Key{Name: "PK", Type: types.ScalarAttributeTypeS},
			SortKey:      Key{Name: "SK", Type: types.ScalarAttributeTypeS},
		},
		HandlerRole: Identity{
			Name:           "DynamoDbHandlerRole",
			RoleName:       "DynamoDbHandlerRole",
			Description:    "Role assumed by the DynamoDbLambdaFunction",
			TrustPrincipal: "lambda.amazonaws.com",
		},
		IntegrationRole: Identity{
			Name:           "ApiGatewayIntegrationRole",
			TrustPrincipal: "apigateway.amazonaws.com",
		},
		Compute: Compute{
			Name:        "DynamoDbHandler",
			Runtime:     "dotnetcore3.1",
			Handler:     "DynamoDbLambda::DynamoDbLambda.Function::FunctionHandler",
			Timeout:     30,
			Environment: map[string]string{},
			Source:      "code/src/DynamoDbLambda",
			Toolchain:   bundling.DotnetLambdaTools,
		},
		FrontDoor: FrontDoor{
			Name:       "CdkApi",
			StageName:  "prod",
			RootMethod: "ANY",
			Routes:     []Route{{Method: "POST", Path: "/create"}},
		},
	}
}

// ReadConfig reads the configuration at `fpath` (json, yaml or toml by extension) and applies it on top
// of the defaults. Values are weakly typed, so `timeout: "30"` is accepted. Unknown keys are errors.
func ReadConfig(fpath string) (Stack, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return Stack{}, err
	}
	defer f.Close() // nolint:errcheck

	raw := make(map[string]any)
	var format string
	switch filepath.Ext(fpath) {
	case ".json":
		err = json.NewDecoder(f).Decode(&raw)
		format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&raw)
		format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(&raw)
		format = "toml"

	default:
		return Stack{}, fmt.Errorf("unsupported config file extension %q", filepath.Ext(fpath))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return Stack{}, fmt.Errorf("could not parse %s: %w", fpath, err)
	}

	var file Stack
	if err := Decode(raw, &file); err != nil {
		return Stack{}, fmt.Errorf("invalid config %s: %w", fpath, err)
	}

	cfg := Default()
	cfg.Merge(file)
	cfg.Format = format
	cfg.Dir = filepath.Dir(fpath)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", fpath, err)
	}
	return cfg, nil
}

// Decode decodes a generic document (as produced by any of the supported formats) into `result`.
func Decode(raw map[string]any, result *Stack) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       attributeTypeHook,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "yaml",
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

var attributeTypeAliases = map[string]types.ScalarAttributeType{
	"string": types.ScalarAttributeTypeS,
	"number": types.ScalarAttributeTypeN,
	"binary": types.ScalarAttributeTypeB,
}

func attributeTypeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(types.ScalarAttributeType("")) {
		return data, nil
	}
	s := data.(string)
	if alias, ok := attributeTypeAliases[strings.ToLower(s)]; ok {
		return alias, nil
	}
	return types.ScalarAttributeType(strings.ToUpper(s)), nil
}

func (cfg *Key) Merge(other Key) {
	if other.Name != "" {
		cfg.Name = other.Name
	}
	if other.Type != "" {
		cfg.Type = other.Type
	}
}

func (cfg *Store) Merge(other Store) {
	if other.TableName != "" {
		cfg.TableName = other.TableName
	}
	cfg.PartitionKey.Merge(other.PartitionKey)
	cfg.SortKey.Merge(other.SortKey)
}

// Merge applies `other` on top of the identity. A different logical name starts a new identity, so
// the rest of the defaults are dropped.
func (cfg *Identity) Merge(other Identity) {
	if other.Name != "" && other.Name != cfg.Name {
		*cfg = Identity{Name: other.Name, TrustPrincipal: cfg.TrustPrincipal}
	}
	if other.RoleName != "" {
		cfg.RoleName = other.RoleName
	}
	if other.Description != "" {
		cfg.Description = other.Description
	}
	if other.TrustPrincipal != "" {
		cfg.TrustPrincipal = other.TrustPrincipal
	}
}

func (cfg *Compute) Merge(other Compute) {
	if other.Name != "" {
		cfg.Name = other.Name
	}
	if other.Runtime != "" {
		cfg.Runtime = other.Runtime
	}
	if other.Handler != "" {
		cfg.Handler = other.Handler
	}
	if other.Timeout != 0 {
		cfg.Timeout = other.Timeout
	}
	if other.MemorySize != 0 {
		cfg.MemorySize = other.MemorySize
	}
	if cfg.Environment == nil {
		cfg.Environment = make(map[string]string, len(other.Environment))
	}
	for k, v := range other.Environment {
		cfg.Environment[k] = v
	}
	if other.Source != "" {
		cfg.Source = other.Source
	}
	if other.Toolchain.Name != "" && other.Toolchain.Name != cfg.Toolchain.Name {
		base, ok := bundling.Toolchains[other.Toolchain.Name]
		if !ok {
			base = bundling.Toolchain{}
		}
		cfg.Toolchain = base
	}
	cfg.Toolchain = cfg.Toolchain.Merge(other.Toolchain)
}

func (cfg *FrontDoor) Merge(other FrontDoor) {
	if other.Name != "" {
		cfg.Name = other.Name
	}
	if other.Description != "" {
		cfg.Description = other.Description
	}
	if other.StageName != "" {
		cfg.StageName = other.StageName
	}
	if other.RootMethod != "" {
		cfg.RootMethod = other.RootMethod
	}
	if len(other.Routes) > 0 {
		cfg.Routes = other.Routes
	}
}

func (cfg *Stack) Merge(other Stack) {
	if other.Name != "" {
		cfg.Name = other.Name
	}
	cfg.Store.Merge(other.Store)
	cfg.HandlerRole.Merge(other.HandlerRole)
	cfg.IntegrationRole.Merge(other.IntegrationRole)
	cfg.Compute.Merge(other.Compute)
	cfg.FrontDoor.Merge(other.FrontDoor)
}

// Validate checks the configuration is complete. Formats are checked when the stack is built.
func (cfg Stack) Validate() error {
	var errs error
	required := func(field, value string) {
		if value == "" {
			errs = errors.Join(errs, fmt.Errorf("%s is required", field))
		}
	}
	required("name", cfg.Name)
	required("store.table_name", cfg.Store.TableName)
	required("store.partition_key.name", cfg.Store.PartitionKey.Name)
	required("store.sort_key.name", cfg.Store.SortKey.Name)
	required("handler_role.name", cfg.HandlerRole.Name)
	required("handler_role.trust_principal", cfg.HandlerRole.TrustPrincipal)
	required("integration_role.name", cfg.IntegrationRole.Name)
	required("integration_role.trust_principal", cfg.IntegrationRole.TrustPrincipal)
	required("compute.name", cfg.Compute.Name)
	required("compute.runtime", cfg.Compute.Runtime)
	required("compute.handler", cfg.Compute.Handler)
	required("compute.source", cfg.Compute.Source)
	required("front_door.name", cfg.FrontDoor.Name)

	if cfg.HandlerRole.Name == cfg.IntegrationRole.Name && cfg.HandlerRole.Name != "" {
		errs = errors.Join(errs, fmt.Errorf("handler_role and integration_role must be different identities, both are %q", cfg.HandlerRole.Name))
	}
	if len(cfg.FrontDoor.Routes) == 0 {
		errs = errors.Join(errs, errors.New("front_door.routes must have at least one route"))
	}
	for i, r := range cfg.FrontDoor.Routes {
		required(fmt.Sprintf("front_door.routes[%d].method", i), r.Method)
		required(fmt.Sprintf("front_door.routes[%d].path", i), r.Path)
	}
	return errs
}

// SourcePath returns the handler's source directory resolved against the configuration directory.
func (cfg Stack) SourcePath() string {
	if filepath.IsAbs(cfg.Compute.Source) || cfg.Dir == "" {
		return cfg.Compute.Source
	}
	return filepath.Join(cfg.Dir, cfg.Compute.Source)
}

// Encode writes the configuration in `format`, defaulting to the format it was read from (or yaml).
func (cfg Stack) Encode(w io.Writer, format string) error {
	if format == "" {
		format = cfg.Format
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)

	case "toml":
		return toml.NewEncoder(w).Encode(cfg)

	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported config format %q", format)
}

// Override is a configuration value that differs from its default.
type Override struct {
	Path string
	From any
	To   any
}

// Overrides lists what `cfg` changes relative to Default, sorted by dotted field path.
func Overrides(cfg Stack) ([]Override, error) {
	cfg.Format, cfg.Dir = "", ""
	changes, err := diff.Diff(Default(), cfg)
	if err != nil {
		return nil, fmt.Errorf("could not compare config to defaults: %w", err)
	}
	overrides := make([]Override, len(changes))
	for i, c := range changes {
		overrides[i] = Override{Path: strings.Join(c.Path, "."), From: c.From, To: c.To}
	}
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].Path < overrides[j].Path })
	return overrides, nil
}
