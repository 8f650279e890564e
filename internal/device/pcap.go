package device

import (
	"net/netip"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/pcapture/internal/core"
)

// libpcap pcap_if_t flag bits.
const (
	pcapIfLoopback = 0x00000001
	pcapIfUp       = 0x00000002
)

// findAllDevs is replaced in tests.
var findAllDevs = pcap.FindAllDevs

// PcapLister enumerates devices through libpcap.
type PcapLister struct{}

// Devices implements Lister.
func (PcapLister) Devices() ([]core.Device, error) {
	ifaces, err := findAllDevs()
	if err != nil {
		return nil, err
	}
	devices := make([]core.Device, 0, len(ifaces))
	for _, iface := range ifaces {
		devices = append(devices, fromPcap(iface))
	}
	return devices, nil
}

func fromPcap(iface pcap.Interface) core.Device {
	d := core.Device{
		Name:        iface.Name,
		Description: iface.Description,
		Loopback:    iface.Flags&pcapIfLoopback != 0,
		Up:          iface.Flags&pcapIfUp != 0,
	}
	for _, a := range iface.Addresses {
		if addr, ok := netip.AddrFromSlice(a.IP); ok {
			d.Addresses = append(d.Addresses, addr.Unmap())
		}
	}
	return d
}
