package sysconf

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

var ErrGatewayUnreachable = errors.New("gateway did not answer ARP")

// netlinker is the subset of netlink the route handler needs.
type netlinker interface {
	RouteGet(dst net.IP) ([]netlink.Route, error)
	RouteReplace(route *netlink.Route) error
	RouteDel(route *netlink.Route) error
	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
}

type nlPackage struct{}

func (nlPackage) RouteGet(dst net.IP) ([]netlink.Route, error) { return netlink.RouteGet(dst) }
func (nlPackage) RouteReplace(r *netlink.Route) error          { return netlink.RouteReplace(r) }
func (nlPackage) RouteDel(r *netlink.Route) error              { return netlink.RouteDel(r) }
func (nlPackage) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	return netlink.RouteList(link, family)
}

type RouteOptions struct {
	ARPCheck   bool
	ARPTimeout time.Duration
	Handle     *netlink.Handle
}

// RouteHandler installs the default route of the owning lease. Backup
// snapshots the default routes present before the first override and
// Restore reinstalls them.
type RouteHandler struct {
	mu   sync.Mutex
	nl   netlinker
	opts RouteOptions

	// arpCheck is swapped in tests.
	arpCheck func(ifindex int, gw net.IP, timeout time.Duration) (bool, error)

	installed *netlink.Route
	saved     []netlink.Route
	haveSaved bool
}

func NewRouteHandler(opts RouteOptions) *RouteHandler {
	h := &RouteHandler{opts: opts, arpCheck: arpCheckIndex}
	if opts.Handle != nil {
		h.nl = opts.Handle
	} else {
		h.nl = nlPackage{}
	}
	return h
}

func arpCheckIndex(ifindex int, gw net.IP, timeout time.Duration) (bool, error) {
	iface, err := net.InterfaceByIndex(ifindex)
	if err != nil {
		return false, err
	}
	return ARPCheck(iface, gw, timeout)
}

func netlinkFamily(gw net.IP) int {
	if gw.To4() != nil {
		return netlink.FAMILY_V4
	}
	return netlink.FAMILY_V6
}

func defaultDst(family int) *net.IPNet {
	if family == netlink.FAMILY_V4 {
		return &net.IPNet{IP: net.IPv4zero.To4(), Mask: net.CIDRMask(0, 32)}
	}
	return &net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(0, 128)}
}

func isDefault(r netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0
}

func (h *RouteHandler) Backup() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var saved []netlink.Route
	for _, family := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
		routes, err := h.nl.RouteList(nil, family)
		if err != nil {
			return fmt.Errorf("netlink route list: %w", err)
		}
		for _, r := range routes {
			if isDefault(r) && r.Gw != nil {
				saved = append(saved, r)
			}
		}
	}
	h.saved, h.haveSaved = saved, true
	log.Debugf("saved %d default routes", len(saved))
	return nil
}

func (h *RouteHandler) Apply(lease *addrconf.Lease) error {
	if lease.DefaultRoute == nil || lease.DefaultRoute.Gateway == nil {
		return errors.New("no default route present")
	}
	gw := lease.DefaultRoute.Gateway

	h.mu.Lock()
	defer h.mu.Unlock()

	via, err := h.nl.RouteGet(gw)
	if err != nil {
		return fmt.Errorf("netlink route get %s: %w", gw, err)
	}
	if len(via) == 0 || via[0].LinkIndex == 0 {
		return fmt.Errorf("no link reaches gateway %s", gw)
	}
	linkIndex := via[0].LinkIndex

	if h.opts.ARPCheck && gw.To4() != nil {
		alive, err := h.arpCheck(linkIndex, gw, h.opts.ARPTimeout)
		if err != nil {
			return fmt.Errorf("arp check %s: %w", gw, err)
		}
		if !alive {
			return fmt.Errorf("%w: %s", ErrGatewayUnreachable, gw)
		}
	}

	family := netlinkFamily(gw)
	route := &netlink.Route{
		LinkIndex: linkIndex,
		Dst:       defaultDst(family),
		Gw:        gw,
		Priority:  lease.DefaultRoute.Metric,
		Family:    family,
	}

	// A previous lease may have routed through another gateway.
	if h.installed != nil && !h.installed.Gw.Equal(gw) {
		if err := h.nl.RouteDel(h.installed); err != nil {
			log.Debugf("cannot remove previous default route via %s: %v", h.installed.Gw, err)
		}
	}

	if err := h.nl.RouteReplace(route); err != nil {
		return fmt.Errorf("netlink route replace: %w", err)
	}
	h.installed = route
	return nil
}

func (h *RouteHandler) Restore() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.installed != nil {
		if err := h.nl.RouteDel(h.installed); err != nil {
			log.Warnf("cannot remove default route via %s: %v", h.installed.Gw, err)
		}
		h.installed = nil
	}
	if !h.haveSaved {
		return nil
	}

	var errs []error
	for i := range h.saved {
		r := h.saved[i]
		if err := h.nl.RouteReplace(&r); err != nil {
			errs = append(errs, fmt.Errorf("reinstall default route via %s: %w", r.Gw, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	h.saved, h.haveSaved = nil, false
	return nil
}
