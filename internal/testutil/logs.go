package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecorder is a slog.Handler that keeps every record it handles.
// Attributes added under WithGroup are stored with dotted keys ("group.key").
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
	attrs   []slog.Attr
	group   string
	parent  *LogRecorder
}

// NewLogRecorder returns a logger writing to a fresh recorder.
func NewLogRecorder() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{}
	return slog.New(rec), rec
}

func (r *LogRecorder) root() *LogRecorder {
	if r.parent != nil {
		return r.parent.root()
	}
	return r
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	out.AddAttrs(r.attrs...)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(r.qualify(a))
		return true
	})
	root := r.root()
	root.mu.Lock()
	root.records = append(root.records, out)
	root.mu.Unlock()
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := append([]slog.Attr(nil), r.attrs...)
	for _, a := range attrs {
		next = append(next, r.qualify(a))
	}
	return &LogRecorder{attrs: next, group: r.group, parent: r.root()}
}

func (r *LogRecorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	if r.group != "" {
		name = r.group + "." + name
	}
	return &LogRecorder{attrs: append([]slog.Attr(nil), r.attrs...), group: name, parent: r.root()}
}

func (r *LogRecorder) qualify(a slog.Attr) slog.Attr {
	if r.group != "" {
		a.Key = r.group + "." + a.Key
	}
	return a
}

// Records returns the records at or above level.
func (r *LogRecorder) Records(level slog.Level) []slog.Record {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var out []slog.Record
	for _, rec := range root.records {
		if rec.Level >= level {
			out = append(out, rec)
		}
	}
	return out
}

// Attr returns the value of the named attribute on rec.
func Attr(rec slog.Record, key string) (slog.Value, bool) {
	var (
		v     slog.Value
		found bool
	)
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			v, found = a.Value, true
			return false
		}
		return true
	})
	return v, found
}
