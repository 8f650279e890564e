// Package progress renders a bounded-rate capture progress bar.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"
)

const (
	defaultRefresh = 100 * time.Millisecond
	defaultWidth   = 30
)

// Options configures a Reporter.
type Options struct {
	RefreshInterval time.Duration // Minimum time between renders, default 100ms
	Width           int           // Bar cells, default 30
	Quiet           bool          // Suppress all output
}

// Reporter renders capture progress toward a fixed total. It is driven from a single
// goroutine.
type Reporter struct {
	out     io.Writer
	total   int
	current int
	start   time.Time
	width   int
	quiet   bool
	tty     bool

	gate     rate.Sometimes
	filled   lipgloss.Style
	finished bool
}

// New creates a Reporter writing to out. Terminals get an in-place coloured bar;
// other writers get one plain line per render.
func New(out io.Writer, total int, opts Options) *Reporter {
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = defaultRefresh
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}

	r := &Reporter{
		out:   out,
		total: total,
		start: time.Now(),
		width: width,
		quiet: opts.Quiet,
		tty:   isTerminal(out),
		gate:  rate.Sometimes{Interval: interval},
	}
	if r.tty {
		r.filled = lipgloss.NewRenderer(out).NewStyle().Foreground(lipgloss.Color("10"))
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Advance adds n completed units and renders if the refresh interval has passed.
func (r *Reporter) Advance(n int) {
	if r.finished {
		return
	}
	r.current += n
	if r.quiet {
		return
	}
	r.gate.Do(r.render)
}

// Finish renders the final state followed by message, if any. Later calls do nothing.
func (r *Reporter) Finish(message string) {
	if r.finished {
		return
	}
	r.finished = true
	if r.quiet {
		return
	}
	r.render()
	if r.tty {
		fmt.Fprintln(r.out)
	}
	if message != "" {
		fmt.Fprintln(r.out, message)
	}
}

func (r *Reporter) render() {
	line := r.line(time.Since(r.start))
	if r.tty {
		fmt.Fprintf(r.out, "\r%s", line)
		return
	}
	fmt.Fprintln(r.out, line)
}

func (r *Reporter) line(elapsed time.Duration) string {
	filled, empty := cells(r.current, r.total, r.width)
	bar := strings.Repeat("█", filled)
	if r.tty {
		bar = r.filled.Render(bar)
	}
	bar += strings.Repeat("░", empty)
	return fmt.Sprintf("[%s] %s", bar, stats(r.current, r.total, elapsed))
}

func cells(current, total, width int) (filled, empty int) {
	if total <= 0 {
		return 0, width
	}
	current = min(max(current, 0), total)
	filled = current * width / total
	return filled, width - filled
}

func stats(current, total int, elapsed time.Duration) string {
	percent := 0
	if total > 0 {
		percent = min(current, total) * 100 / total
	}
	eta := "--:--:--"
	if current > 0 && total > 0 {
		remaining := max(total-current, 0)
		eta = clock(elapsed * time.Duration(remaining) / time.Duration(current))
	}
	return fmt.Sprintf("%d/%d %d%% elapsed %s eta %s", current, total, percent, clock(elapsed), eta)
}

// clock formats d as HH:MM:SS.
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
