// Package zap adapts a *zap.Logger to evcache.Logger.
package zap

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/evcache"
)

var _ evcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New wraps l; a nil l logs nothing.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l}
}

func (z Logger) Debug(msg string, f evcache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f evcache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f evcache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f evcache.Fields) { z.L.Error(msg, fields(f)...) }

// fields sorts by key so output is stable; errors become zap.NamedError.
func fields(f evcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
