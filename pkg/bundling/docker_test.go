package bundling

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

// mountSource returns the host side of the volume mounted at `target`.
func mountSource(args []string, target string) string {
	for i, a := range args {
		if a != "-v" || i+1 >= len(args) {
			continue
		}
		parts := strings.Split(args[i+1], ":")
		if len(parts) >= 2 && parts[1] == target {
			return parts[0]
		}
	}
	return ""
}

func TestDockerRunner_Bundle(t *testing.T) {
	asset, err := NewAsset("code/src/DynamoDbLambda", DotnetLambdaTools)
	require.NoError(t, err)
	asset.Entry = "DynamoDbLambda.dll"

	tests := []struct {
		name    string
		exec    func(t *testing.T) func(ctx context.Context, cmd Cmd) error
		wantErr error
	}{
		{
			name: "artifact promoted",
			exec: func(t *testing.T) func(ctx context.Context, cmd Cmd) error {
				return func(ctx context.Context, cmd Cmd) error {
					staging := mountSource(cmd.Args, "/asset-output")
					require.NotEmpty(t, staging)
					return os.WriteFile(filepath.Join(staging, "DynamoDbLambda.dll"), []byte("dll"), 0644)
				}
			},
		},
		{
			name: "failed step",
			exec: func(t *testing.T) func(ctx context.Context, cmd Cmd) error {
				return func(ctx context.Context, cmd Cmd) error {
					staging := mountSource(cmd.Args, "/asset-output")
					// partial output written before the failure must not be promoted
					_ = os.WriteFile(filepath.Join(staging, "partial"), nil, 0644)
					return &BuildError{Command: "docker", ExitCode: 1}
				}
			},
			wantErr: &BuildError{},
		},
		{
			name: "empty output",
			exec: func(t *testing.T) func(ctx context.Context, cmd Cmd) error {
				return func(ctx context.Context, cmd Cmd) error { return nil }
			},
			wantErr: ErrEmptyOutput,
		},
		{
			name: "entry missing",
			exec: func(t *testing.T) func(ctx context.Context, cmd Cmd) error {
				return func(ctx context.Context, cmd Cmd) error {
					staging := mountSource(cmd.Args, "/asset-output")
					return os.WriteFile(filepath.Join(staging, "Other.dll"), []byte("dll"), 0644)
				}
			},
			wantErr: ErrMissingEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			executor := NewMockExecutor(ctrl)

			out := filepath.Join(t.TempDir(), "out")
			require.NoError(t, os.MkdirAll(out, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(out, "previous"), []byte("old"), 0644))
			require.NoError(t, os.WriteFile(filepath.Join(out, BundleMarker), nil, 0644))

			executor.EXPECT().Exec(gomock.Any(), gomock.Any()).DoAndReturn(tt.exec(t))

			err := DockerRunner{Executor: executor}.Bundle(context.Background(), asset, out)
			if tt.wantErr != nil {
				var berr *BuildError
				if errors.As(tt.wantErr, &berr) {
					assert.ErrorAs(t, err, &berr)
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.FileExists(t, filepath.Join(out, "previous"), "existing output must survive a failed bundle")
				return
			}
			require.NoError(t, err)
			assert.FileExists(t, filepath.Join(out, "DynamoDbLambda.dll"))
			assert.FileExists(t, filepath.Join(out, BundleMarker))
			assert.NoFileExists(t, filepath.Join(out, "previous"))

			siblings, err := os.ReadDir(filepath.Dir(out))
			require.NoError(t, err)
			assert.Len(t, siblings, 1, "promotion must not leave anything next to the output")
		})
	}
}

func TestDockerRunner_Bundle_foreignOutput(t *testing.T) {
	asset, err := NewAsset("code/src/DynamoDbLambda", DotnetLambdaTools)
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "notes.txt"), []byte("keep me"), 0644))

	// No Exec expectation: the build must not start.
	executor := NewMockExecutor(gomock.NewController(t))
	err = DockerRunner{Executor: executor}.Bundle(context.Background(), asset, out)
	assert.ErrorIs(t, err, ErrOutputNotBundle)
	assert.FileExists(t, filepath.Join(out, "notes.txt"))
}

func TestDockerRunner_Bundle_args(t *testing.T) {
	asset, err := NewAsset("code/src/DynamoDbLambda", DotnetLambdaTools)
	require.NoError(t, err)
	absSrc, err := filepath.Abs(asset.SourcePath)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	executor := NewMockExecutor(ctrl)
	executor.EXPECT().Exec(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, cmd Cmd) error {
		assert.Equal(t, "docker", cmd.Name)
		assert.Equal(t, []string{"run", "--rm", "--name"}, cmd.Args[:3])
		assert.Equal(t, absSrc, mountSource(cmd.Args, "/asset-input"))
		assert.Contains(t, cmd.Args, "public.ecr.aws/sam/build-dotnetcore3.1")
		assert.Equal(t, asset.Command(), cmd.Args[len(cmd.Args)-3:])
		return errors.New("stop")
	})

	err = DockerRunner{Executor: executor}.Bundle(context.Background(), asset, t.TempDir())
	assert.EqualError(t, err, "stop")
}
