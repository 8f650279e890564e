package hook

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// Viewer opens the capture file in an external analysis tool.
type Viewer struct {
	command string
	args    []string
	start   func(cmd *exec.Cmd) error
}

// NewViewer creates a viewer hook running `command args... <path>`.
func NewViewer(command string, args []string) *Viewer {
	return &Viewer{
		command: command,
		args:    args,
		start:   startDetached,
	}
}

// Name implements Hook.
func (v *Viewer) Name() string { return "viewer" }

// Run spawns the viewer without waiting for it to exit.
func (v *Viewer) Run(_ context.Context, r Result) error {
	args := append(append([]string{}, v.args...), r.Path)
	cmd := exec.Command(v.command, args...)
	if err := v.start(cmd); err != nil {
		return fmt.Errorf("failed to launch %s: %w", v.command, err)
	}
	slog.Info("viewer launched", "command", v.command, "path", r.Path)
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
