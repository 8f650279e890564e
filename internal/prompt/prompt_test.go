package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/device"
)

func testDevices() []core.Device {
	return []core.Device{
		{Name: "eth0", Description: "Ethernet"},
		{Name: "lo", Loopback: true},
	}
}

func TestFrameCount(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("25\n"), &out)

	n, err := p.FrameCount()

	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, "Enter the number of packets to capture: ", out.String())
}

func TestFrameCount_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a number", "abc\n"},
		{"zero", "0\n"},
		{"negative", "-3\n"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(strings.NewReader(tt.input), &bytes.Buffer{})
			_, err := p.FrameCount()
			assert.ErrorIs(t, err, core.ErrUsage)
		})
	}
}

func TestFrameCount_NoTrailingNewline(t *testing.T) {
	p := New(strings.NewReader(" 7 "), &bytes.Buffer{})
	n, err := p.FrameCount()
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestChooseDevice(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("2\n"), &out)

	i, err := p.ChooseDevice(testDevices())

	require.NoError(t, err)
	assert.Equal(t, 2, i)
	assert.Equal(t,
		"Available network interfaces:\n"+
			"1: eth0 (Ethernet)\n"+
			"2: lo (No description)\n"+
			"Enter the number of the interface to capture:\n",
		out.String())
}

func TestChooseDevice_Invalid(t *testing.T) {
	for _, input := range []string{"0\n", "3\n", "eth0\n"} {
		p := New(strings.NewReader(input), &bytes.Buffer{})
		_, err := p.ChooseDevice(testDevices())

		var selErr *device.SelectionError
		require.ErrorAs(t, err, &selErr, "input %q", input)
		assert.ErrorIs(t, err, core.ErrInvalidSelection)
		assert.Equal(t, "Invalid choice. Please enter a number between 1 and 2.", err.Error())
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"yes\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := New(strings.NewReader(tt.input), &out)
		got, err := p.Confirm("Would you like to open the capture in Wireshark?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Would you like to open the capture in Wireshark? [y/N]\n", out.String())
	}
}

func TestSequentialAnswers(t *testing.T) {
	p := New(strings.NewReader("10\n1\ny\n"), &bytes.Buffer{})

	n, err := p.FrameCount()
	require.NoError(t, err)
	i, err := p.ChooseDevice(testDevices())
	require.NoError(t, err)
	ok, err := p.Confirm("Open?")
	require.NoError(t, err)

	assert.Equal(t, 10, n)
	assert.Equal(t, 1, i)
	assert.True(t, ok)
}
