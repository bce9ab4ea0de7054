// Package logging fans slog records out to the console and into the
// application database so operational history survives restarts.
package logging

import (
	"context"
	"log/slog"
	"sync"
)

// MultiHandler forwards every record to all wrapped handlers.
type MultiHandler struct {
	mu       *sync.Mutex
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{mu: &sync.Mutex{}, handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, dest := range h.handlers {
		if err := dest.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.handlers = make([]slog.Handler, len(h.handlers))
	for i, inner := range h.handlers {
		h2.handlers[i] = inner.WithGroup(name)
	}
	return &h2
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.handlers = make([]slog.Handler, len(h.handlers))
	for i, inner := range h.handlers {
		h2.handlers[i] = inner.WithAttrs(attrs)
	}
	return &h2
}
