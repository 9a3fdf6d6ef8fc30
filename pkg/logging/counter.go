package logging

import (
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// Counter tallies warnings and errors as they are logged so a command can decide its exit status
// without re-scanning output.
type Counter struct {
	warnings atomic.Int64
	errors   atomic.Int64
}

func (c *Counter) Hook(e zapcore.Entry) error {
	switch {
	case e.Level >= zapcore.ErrorLevel:
		c.errors.Inc()
	case e.Level == zapcore.WarnLevel:
		c.warnings.Inc()
	}
	return nil
}

func (c *Counter) Warnings() int64 {
	return c.warnings.Load()
}

func (c *Counter) Errors() int64 {
	return c.errors.Load()
}

func (c *Counter) HadErrors() bool {
	return c.Errors() > 0
}
