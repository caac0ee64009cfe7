package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/evcache"
)

func TestLevelsAndSortedFields(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{
		Level: stdslog.LevelInfo,
		ReplaceAttr: func(_ []string, a stdslog.Attr) stdslog.Attr {
			if a.Key == stdslog.TimeKey {
				return stdslog.Attr{}
			}
			return a
		},
	})
	l := Logger{L: stdslog.New(h)}

	l.Debug("hidden", evcache.Fields{"k": 1})
	l.Warn("compute retries exhausted", evcache.Fields{"key": "s:k", "attempts": 10})

	got := strings.TrimSpace(buf.String())
	want := `level=WARN msg="compute retries exhausted" attempts=10 key=s:k`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}
