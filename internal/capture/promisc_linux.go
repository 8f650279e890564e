//go:build linux

package capture

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// promiscGuard remembers whether IFF_PROMISC was set by us so Close can undo it.
type promiscGuard struct {
	name     string
	wasSet   bool
	restored bool
}

func enablePromisc(name string) (*promiscGuard, error) {
	flags, err := ifFlags(name)
	if err != nil {
		return nil, err
	}
	if flags&unix.IFF_PROMISC != 0 {
		return &promiscGuard{name: name, wasSet: true}, nil
	}
	if err := setIfFlags(name, flags|unix.IFF_PROMISC); err != nil {
		return nil, err
	}
	return &promiscGuard{name: name}, nil
}

func (g *promiscGuard) restore() error {
	if g.wasSet || g.restored {
		return nil
	}
	g.restored = true
	flags, err := ifFlags(g.name)
	if err != nil {
		return err
	}
	return setIfFlags(g.name, flags&^unix.IFF_PROMISC)
}

func ifFlags(name string) (uint16, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("control socket: %w", err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, err
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return 0, fmt.Errorf("SIOCGIFFLAGS %s: %w", name, err)
	}
	return ifr.Uint16(), nil
}

func setIfFlags(name string, flags uint16) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	ifr.SetUint16(flags)
	if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return fmt.Errorf("SIOCSIFFLAGS %s: %w", name, err)
	}
	return nil
}
