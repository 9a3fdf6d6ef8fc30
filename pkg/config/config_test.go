package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/kvstack/pkg/bundling"
	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(dedent.Dedent(content)), 0o644))
	return path
}

func Test_ReadConfig(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		want     func(s *Stack)
		wantFmt  string
		wantErrs []string
	}{
		{
			name:    "empty yaml is the default stack",
			file:    "kvstack.yaml",
			content: "",
			want:    func(s *Stack) {},
			wantFmt: "yaml",
		},
		{
			name: "yaml overrides",
			file: "kvstack.yaml",
			content: `
				store:
				  table_name: Orders
				  sort_key:
				    name: CreatedAt
				    type: number
				compute:
				  timeout: "60"
				  environment:
				    STAGE: dev
				front_door:
				  routes:
				    - method: get
				      path: /orders/{id}
				    - method: POST
				      path: /orders
				`,
			want: func(s *Stack) {
				s.Store.TableName = "Orders"
				s.Store.SortKey = Key{Name: "CreatedAt", Type: types.ScalarAttributeTypeN}
				s.Compute.Timeout = 60
				s.Compute.Environment = map[string]string{"STAGE": "dev"}
				s.FrontDoor.Routes = []Route{{Method: "get", Path: "/orders/{id}"}, {Method: "POST", Path: "/orders"}}
			},
			wantFmt: "yaml",
		},
		{
			name: "toml",
			file: "kvstack.toml",
			content: `
				name = "orders"

				[compute]
				memory_size = 512

				[compute.toolchain]
				image = "public.ecr.aws/sam/build-dotnet6"
				`,
			want: func(s *Stack) {
				s.Name = "orders"
				s.Compute.MemorySize = 512
				s.Compute.Toolchain.Image = "public.ecr.aws/sam/build-dotnet6"
			},
			wantFmt: "toml",
		},
		{
			name:    "json",
			file:    "kvstack.json",
			content: `{"handler_role": {"name": "Handler", "trust_principal": "lambda.amazonaws.com"}, "front_door": {"stage_name": "dev"}}`,
			want: func(s *Stack) {
				s.HandlerRole = Identity{Name: "Handler", TrustPrincipal: "lambda.amazonaws.com"}
				s.FrontDoor.StageName = "dev"
			},
			wantFmt: "json",
		},
		{
			name: "unknown key",
			file: "kvstack.yaml",
			content: `
				store:
				  tablename: Orders
				`,
			wantErrs: []string{"tablename"},
		},
		{
			name: "same identity twice",
			file: "kvstack.yaml",
			content: `
				integration_role:
				  name: DynamoDbHandlerRole
				`,
			wantErrs: []string{"must be different identities"},
		},
		{
			name:     "unsupported extension",
			file:     "kvstack.ini",
			content:  "name = x",
			wantErrs: []string{`unsupported config file extension ".ini"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			path := writeConfig(t, tt.file, tt.content)

			got, err := ReadConfig(path)
			if len(tt.wantErrs) > 0 {
				require.Error(t, err)
				for _, msg := range tt.wantErrs {
					assert.Contains(err.Error(), msg)
				}
				return
			}
			require.NoError(t, err)

			want := Default()
			tt.want(&want)
			want.Format = tt.wantFmt
			want.Dir = filepath.Dir(path)
			assert.Equal(want, got)
		})
	}
}

func Test_Default(t *testing.T) {
	assert := assert.New(t)
	cfg := Default()

	assert.NoError(cfg.Validate())
	assert.Equal("MyCdkTable", cfg.Store.TableName)
	assert.Equal(Key{Name: "PK", Type: types.ScalarAttributeTypeS}, cfg.Store.PartitionKey)
	assert.Equal(Key{Name: "SK", Type: types.ScalarAttributeTypeS}, cfg.Store.SortKey)
	assert.Equal("Role assumed by the DynamoDbLambdaFunction", cfg.HandlerRole.Description)
	assert.Equal(bundling.DotnetLambdaTools, cfg.Compute.Toolchain)
	assert.Equal([]Route{{Method: "POST", Path: "/create"}}, cfg.FrontDoor.Routes)
	assert.Equal("ANY", cfg.FrontDoor.RootMethod)

	// Defaults must not share state between calls.
	cfg.Compute.Environment["X"] = "y"
	assert.Empty(Default().Compute.Environment)
}

func Test_Validate(t *testing.T) {
	cfg := Default()
	cfg.Store.TableName = ""
	cfg.FrontDoor.Routes = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.table_name is required")
	assert.Contains(t, err.Error(), "front_door.routes must have at least one route")
}

func Test_Compute_Merge_toolchain(t *testing.T) {
	tests := []struct {
		name  string
		other bundling.Toolchain
		want  bundling.Toolchain
	}{
		{
			name: "no override",
			want: bundling.DotnetLambdaTools,
		},
		{
			name:  "override one command",
			other: bundling.Toolchain{Install: "dotnet tool update -g Amazon.Lambda.Tools"},
			want: func() bundling.Toolchain {
				tc := bundling.DotnetLambdaTools
				tc.Install = "dotnet tool update -g Amazon.Lambda.Tools"
				return tc
			}(),
		},
		{
			name:  "unknown toolchain starts empty",
			other: bundling.Toolchain{Name: "custom", Image: "builder"},
			want:  bundling.Toolchain{Name: "custom", Image: "builder"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().Compute
			cfg.Merge(Compute{Toolchain: tt.other})
			assert.Equal(t, tt.want, cfg.Toolchain)
		})
	}
}

func Test_SourcePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "code/src/DynamoDbLambda", cfg.SourcePath())

	cfg.Dir = "/work/app"
	assert.Equal(t, "/work/app/code/src/DynamoDbLambda", cfg.SourcePath())

	cfg.Compute.Source = "/abs/src"
	assert.Equal(t, "/abs/src", cfg.SourcePath())
}

func Test_Encode_roundTrip(t *testing.T) {
	for _, format := range []string{"yaml", "json", "toml"} {
		t.Run(format, func(t *testing.T) {
			cfg := Default()
			cfg.Compute.Environment = map[string]string{"STAGE": "dev"}

			buf := new(bytes.Buffer)
			require.NoError(t, cfg.Encode(buf, format))

			path := writeConfig(t, "kvstack."+format, buf.String())
			got, err := ReadConfig(path)
			require.NoError(t, err)

			cfg.Format = format
			cfg.Dir = filepath.Dir(path)
			assert.Equal(t, cfg, got)
		})
	}
}

func Test_Overrides(t *testing.T) {
	none, err := Overrides(Default())
	require.NoError(t, err)
	assert.Empty(t, none)

	cfg := Default()
	cfg.Format = "toml"
	cfg.Store.TableName = "Orders"
	cfg.Compute.Timeout = 60

	got, err := Overrides(cfg)
	require.NoError(t, err)
	assert.Equal(t, []Override{
		{Path: "Compute.Timeout", From: 30, To: 60},
		{Path: "Store.TableName", From: "MyCdkTable", To: "Orders"},
	}, got)
}
