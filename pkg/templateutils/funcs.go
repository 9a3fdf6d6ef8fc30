package templateutils

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
)

var shellSafe = regexp.MustCompile(`^[a-zA-Z0-9_./:=@%+,-]+$`)

var Funcs = template.FuncMap{
	"joinString": strings.Join,

	"json": func(v any) (string, error) {
		buf := new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		if err := enc.Encode(v); err != nil {
			return "", err
		} else {
			return strings.TrimSpace(buf.String()), nil
		}
	},

	"fileBase": func(path string) string {
		return filepath.Base(path)
	},

	"fileTrimExt": func(path string) string {
		return strings.TrimSuffix(path, filepath.Ext(path))
	},

	"shellArg": ShellArg,
}

// ShellArg returns `s` unchanged when it is safe as a single bash word, otherwise single-quoted.
func ShellArg(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Parse parses `text` with both the local functions and sprig's hermetic text functions available.
func Parse(name, text string) (*template.Template, error) {
	return template.New(name).
		Funcs(sprig.HermeticTxtFuncMap()).
		Funcs(Funcs).
		Option("missingkey=error").
		Parse(text)
}

// Execute parses and executes `text` against `data`, returning the rendered string.
func Execute(name, text string, data any) (string, error) {
	t, err := Parse(name, text)
	if err != nil {
		return "", err
	}
	buf := new(strings.Builder)
	if err := t.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
