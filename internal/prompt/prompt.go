// Package prompt reads operator answers for interactive captures.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/device"
)

// Prompter asks questions on out and reads one line per answer from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// FrameCount asks for the number of frames to capture.
func (p *Prompter) FrameCount() (int, error) {
	fmt.Fprint(p.out, "Enter the number of packets to capture: ")
	line, err := p.readLine()
	if err != nil {
		return 0, fmt.Errorf("%w: read packet count: %v", core.ErrUsage, err)
	}
	n, err := ParseCount(line)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ParseCount parses a positive frame count.
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: Please enter a valid number: %q", core.ErrUsage, s)
	}
	return n, nil
}

// ChooseDevice lists devices and asks for a 1-indexed choice.
func (p *Prompter) ChooseDevice(devices []core.Device) (int, error) {
	fmt.Fprintln(p.out, "Available network interfaces:")
	if err := device.WriteList(p.out, devices); err != nil {
		return 0, err
	}
	fmt.Fprintln(p.out, "Enter the number of the interface to capture:")
	line, err := p.readLine()
	if err != nil {
		return 0, fmt.Errorf("%w: read interface choice: %v", core.ErrUsage, err)
	}
	i, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || i < 1 || i > len(devices) {
		return 0, &device.SelectionError{Max: len(devices)}
	}
	return i, nil
}

// Confirm asks a y/N question. Only "y" or "Y" is a yes; EOF is a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]\n", question)
	line, err := p.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// readLine returns the next line without its terminator. A final line without a
// newline is returned as is.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
