package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type resourceField struct {
	provider string
	typ      string
	name     string
}

func (field resourceField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("provider", field.provider)
	enc.AddString("type", field.typ)
	enc.AddString("name", field.name)
	return nil
}

// ResourceField logs a resource id as an object so JSON output can be filtered by type.
// It takes the parts instead of the id to keep this package free of the graph types.
func ResourceField(provider, typ, name string) zap.Field {
	return zap.Object("resource", resourceField{provider: provider, typ: typ, name: name})
}

func EdgeField(source, target string) zap.Field {
	return zap.Strings("edge", []string{source, target})
}

// RunField tags every entry of a single command invocation.
func RunField() zap.Field {
	return zap.String("run", uuid.NewString())
}

func FileNames[F interface{ Path() string }](files []F) []string {
	s := make([]string, len(files))
	for i, f := range files {
		s[i] = f.Path()
	}
	return s
}
