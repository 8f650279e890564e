// Package hook implements post-capture hooks.
package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"firestige.xyz/pcapture/internal/core"
)

// Result describes a completed capture session.
type Result struct {
	Path     string            `json:"path"`
	Device   string            `json:"device"`
	Backend  string            `json:"backend"`
	SnapLen  int               `json:"snaplen"`
	LinkType string            `json:"link_type"`
	Status   string            `json:"status"`
	Stats    core.SessionStats `json:"-"`
}

// Hook runs after a capture completes.
type Hook interface {
	Name() string
	Run(ctx context.Context, r Result) error
}

// RunAll runs hooks in order. Failures are logged and do not stop later hooks; the
// returned error joins them under core.ErrPostHook.
func RunAll(ctx context.Context, hooks []Hook, r Result) error {
	var errs []error
	for _, h := range hooks {
		start := time.Now()
		if err := h.Run(ctx, r); err != nil {
			slog.Warn("post-capture hook failed", "hook", h.Name(), "path", r.Path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.Name(), err))
			continue
		}
		slog.Info("post-capture hook done", "hook", h.Name(), "duration", time.Since(start))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", core.ErrPostHook, errors.Join(errs...))
}

// CloseAll closes the hooks holding connections.
func CloseAll(hooks []Hook) {
	for _, h := range hooks {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close hook", "hook", h.Name(), "error", err)
			}
		}
	}
}

// summary is the JSON document published for a session.
type summary struct {
	Path         string    `json:"path"`
	Device       string    `json:"device"`
	Backend      string    `json:"backend"`
	SnapLen      int       `json:"snaplen"`
	LinkType     string    `json:"link_type"`
	Status       string    `json:"status"`
	Requested    int       `json:"requested"`
	Captured     int       `json:"captured"`
	Dropped      int       `json:"dropped"`
	BytesWritten int64     `json:"bytes_written"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DurationMs   int64     `json:"duration_ms"`
}

func newSummary(r Result) summary {
	return summary{
		Path:         r.Path,
		Device:       r.Device,
		Backend:      r.Backend,
		SnapLen:      r.SnapLen,
		LinkType:     r.LinkType,
		Status:       r.Status,
		Requested:    r.Stats.Requested,
		Captured:     r.Stats.Captured,
		Dropped:      r.Stats.Dropped,
		BytesWritten: r.Stats.BytesWritten,
		StartTime:    r.Stats.StartTime,
		EndTime:      r.Stats.EndTime,
		DurationMs:   r.Stats.Elapsed().Milliseconds(),
	}
}

// Asker answers a yes/no question.
type Asker func(question string) (bool, error)

type confirmed struct {
	Hook
	question string
	ask      Asker
}

// WhenConfirmed runs h only after ask(question) answers yes. A no skips h silently.
func WhenConfirmed(h Hook, question string, ask Asker) Hook {
	return &confirmed{Hook: h, question: question, ask: ask}
}

func (c *confirmed) Run(ctx context.Context, r Result) error {
	ok, err := c.ask(c.question)
	if err != nil {
		return fmt.Errorf("read answer: %w", err)
	}
	if !ok {
		slog.Debug("post-capture hook declined", "hook", c.Name())
		return nil
	}
	return c.Hook.Run(ctx, r)
}

// Close closes the wrapped hook if it holds a connection.
func (c *confirmed) Close() error {
	if cl, ok := c.Hook.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
