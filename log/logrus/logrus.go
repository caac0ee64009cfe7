// Package logrus adapts a *logrus.Entry to evcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/evcache"
)

var _ evcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps the given logger.
func New(l *logrus.Logger) Logger { return Logger{E: logrus.NewEntry(l)} }

func (l Logger) Debug(msg string, f evcache.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f evcache.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f evcache.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f evcache.Fields) { l.entry(f).Error(msg) }

// entry moves an error under "err" to logrus' own error key.
func (l Logger) entry(f evcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
