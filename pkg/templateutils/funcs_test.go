package templateutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellArg(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{name: "plain path", arg: "/asset-input", want: "/asset-input"},
		{name: "space", arg: "/tmp/my dir", want: "'/tmp/my dir'"},
		{name: "quote", arg: "it's", want: `'it'\''s'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellArg(tt.arg))
		})
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "local func",
			text: "cd {{ shellArg .Dir }}",
			data: map[string]string{"Dir": "/asset-input"},
			want: "cd /asset-input",
		},
		{
			name: "sprig func",
			text: `{{ .Home | trimSuffix "/" }}/.dotnet/tools`,
			data: map[string]string{"Home": "/tmp/DOTNET_CLI_HOME/"},
			want: "/tmp/DOTNET_CLI_HOME/.dotnet/tools",
		},
		{
			name:    "missing key",
			text:    "{{ .Missing }}",
			data:    map[string]string{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Execute(tt.name, tt.text, tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
