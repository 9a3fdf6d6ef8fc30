package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller gives named loggers their own minimum level. A logger uses the level set for its full
// name or, failing that, for its nearest dotted parent, so a level for "bundling" also holds
// "bundling.stdout" and "bundling.stderr". The empty name is the fallback for every logger. Loggers
// with no matching level are left to the wrapped core.
type EntryLeveller struct {
	zapcore.Core

	levels map[string]zapcore.Level
	// resolved caches levelFor per logger name and is shared with cores derived through With.
	resolved *sync.Map
}

type resolvedLevel struct {
	level zapcore.Level
	ok    bool
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	copied := make(map[string]zapcore.Level, len(levels))
	for name, lvl := range levels {
		copied[name] = lvl
	}
	return &EntryLeveller{Core: core, levels: copied, resolved: new(sync.Map)}
}

func (el *EntryLeveller) With(fields []zapcore.Field) zapcore.Core {
	return &EntryLeveller{Core: el.Core.With(fields), levels: el.levels, resolved: el.resolved}
}

func (el *EntryLeveller) levelFor(name string) (zapcore.Level, bool) {
	if r, ok := el.resolved.Load(name); ok {
		res := r.(resolvedLevel)
		return res.level, res.ok
	}
	var res resolvedLevel
	for module := name; ; {
		if lvl, ok := el.levels[module]; ok {
			res = resolvedLevel{level: lvl, ok: true}
			break
		}
		if module == "" {
			break
		}
		if i := strings.LastIndexByte(module, '.'); i >= 0 {
			module = module[:i]
		} else {
			module = ""
		}
	}
	el.resolved.Store(name, res)
	return res.level, res.ok
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	level, ok := el.levelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < level {
		return ce
	}
	return ce.AddCore(e, el)
}
