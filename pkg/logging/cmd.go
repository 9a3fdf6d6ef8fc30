package logging

import (
	"bytes"
	"context"
	"os/exec"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// lineWriter logs each complete line written to it. Partial lines are held until the next newline or Flush.
type lineWriter struct {
	logger *zap.Logger
	level  zapcore.Level

	mu      sync.Mutex
	pending []byte
	tail    *tailBuffer
}

type CommandLogger struct {
	RootLogger  *zap.Logger
	StdoutLevel zapcore.Level
	StderrLevel zapcore.Level
	// TailLines is how many trailing stderr lines to keep for error reporting. Zero keeps none.
	TailLines int
}

// DefaultCommandLogger logs stdout at debug and stderr at info using the context's logger.
func DefaultCommandLogger(ctx context.Context) CommandLogger {
	return CommandLogger{
		RootLogger:  GetLogger(ctx),
		StdoutLevel: zapcore.DebugLevel,
		StderrLevel: zapcore.InfoLevel,
		TailLines:   20,
	}
}

func (w *lineWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		w.log(w.pending[:idx])
		w.pending = w.pending[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) log(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	if w.tail != nil {
		w.tail.add(string(line))
	}
	if ce := w.logger.Check(w.level, string(line)); ce != nil {
		ce.Write()
	}
}

func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log(w.pending)
	w.pending = nil
}

type tailBuffer struct {
	max   int
	lines []string
}

func (t *tailBuffer) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

// LoggedCmd is an exec.Cmd whose output is streamed to a logger line by line.
type LoggedCmd struct {
	*exec.Cmd

	stdout *lineWriter
	stderr *lineWriter
}

func Command(ctx context.Context, cfg CommandLogger, name string, arg ...string) *LoggedCmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	lc := &LoggedCmd{
		Cmd:    cmd,
		stdout: &lineWriter{logger: cfg.RootLogger.Named("stdout"), level: cfg.StdoutLevel},
		stderr: &lineWriter{logger: cfg.RootLogger.Named("stderr"), level: cfg.StderrLevel},
	}
	if cfg.TailLines > 0 {
		lc.stderr.tail = &tailBuffer{max: cfg.TailLines}
	}
	cmd.Stdout = lc.stdout
	cmd.Stderr = lc.stderr
	return lc
}

// Run runs the command and flushes any output not terminated by a newline.
func (c *LoggedCmd) Run() error {
	err := c.Cmd.Run()
	c.stdout.Flush()
	c.stderr.Flush()
	return err
}

// StderrTail returns the last lines the command wrote to stderr.
func (c *LoggedCmd) StderrTail() []string {
	c.stderr.mu.Lock()
	defer c.stderr.mu.Unlock()
	if c.stderr.tail == nil {
		return nil
	}
	return append([]string(nil), c.stderr.tail.lines...)
}
