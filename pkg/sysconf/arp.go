package sysconf

import (
	"fmt"
	"net"
	"time"

	"github.com/j-keck/arping"
)

// ARPCheck reports whether ip answers ARP on iface within timeout.
func ARPCheck(iface *net.Interface, ip net.IP, timeout time.Duration) (bool, error) {
	ip4 := ip.To4()

	if ip4 == nil {
		return false, fmt.Errorf("ARP check only valid for IPv4, got: %v", ip)
	}

	if timeout > 0 {
		arping.SetTimeout(timeout)
	}

	_, _, err := arping.PingOverIface(ip4, *iface)
	switch err {
	case nil:
		return true, nil
	case arping.ErrTimeout:
		return false, nil
	default:
		return false, err
	}
}
