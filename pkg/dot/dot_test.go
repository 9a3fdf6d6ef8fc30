package dot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSvgPan(t *testing.T) {
	assert := assert.New(t)
	svg := `<svg width="100pt" height="50pt" viewBox="0 0 100 50" xmlns="http://www.w3.org/2000/svg">` +
		`<g id="graph0" class="graph"><text>a &; b</text></g></svg>`

	got := SvgPan(svg)

	assert.True(strings.HasPrefix(got, `<svg width="100%" height="100%" xmlns=`))
	assert.Contains(got, `<g id="viewport"`)
	assert.Contains(got, "&amp;;")
	assert.Less(strings.Index(got, `<script`), strings.Index(got, `<g id="graph0"`))
	assert.True(strings.HasSuffix(got, `</g></g></svg>`))
}

func TestExecPan(t *testing.T) {
	if !Available() {
		t.Skip("graphviz is not installed")
	}
	svg, err := ExecPan(context.Background(), strings.NewReader(`digraph { a -> b }`))
	require.NoError(t, err)
	assert.Contains(t, svg, `<g id="viewport"`)
}

func TestExecute_invalidInput(t *testing.T) {
	if !Available() {
		t.Skip("graphviz is not installed")
	}
	err := Execute(context.Background(), strings.NewReader(`digraph {`), new(strings.Builder))
	assert.ErrorContains(t, err, "could not run 'dot'")
}

func TestExecute_notInstalled(t *testing.T) {
	if Available() {
		t.Skip("graphviz is installed")
	}
	_, err := ExecPan(context.Background(), strings.NewReader(`digraph { a -> b }`))
	assert.ErrorIs(t, err, ErrNotInstalled)
}
