package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type LogAttrFormat string

const (
	LogAttrFormatText LogAttrFormat = "TEXT"
	LogAttrFormatJSON LogAttrFormat = "JSON"
)

// LogStore is the slice of the database the handler needs. Declared here so
// the config package can import logging without dragging the database in.
type LogStore interface {
	SaveLogEntry(ctx context.Context, timestamp time.Time, level int, message, attrs string) error
}

type SQLiteHandler struct {
	store    LogStore
	minLevel slog.Level
	format   LogAttrFormat
}

func NewSQLiteHandler(store LogStore, minLevel slog.Level, format LogAttrFormat) *SQLiteHandler {
	return &SQLiteHandler{store: store, minLevel: minLevel, format: format}
}

func (h *SQLiteHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.minLevel {
		return nil
	}
	return h.store.SaveLogEntry(ctx, time.Now(), int(r.Level), r.Message, formatAttrs(r, h.format))
}

func formatAttrs(r slog.Record, format LogAttrFormat) string {
	if strings.EqualFold(string(format), "text") {
		var b strings.Builder
		r.Attrs(func(a slog.Attr) bool {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			b.WriteString(a.Key)
			b.WriteString("=")
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(a.Value.String(), "=", "\\="), ";", "\\;"))
			return true
		})
		return b.String()
	}

	var attrs []map[string]string
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, map[string]string{a.Key: a.Value.String()})
		return true
	})
	if len(attrs) == 0 {
		return ""
	}
	jsonBytes, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Sprintf(`{"error": "%v"}`, err)
	}
	return string(jsonBytes)
}

func (h *SQLiteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SQLiteHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *SQLiteHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel
}
