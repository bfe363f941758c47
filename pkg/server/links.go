package server

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

type linkLister interface {
	LinkList() ([]netlink.Link, error)
}

type nlLinks struct{}

func (nlLinks) LinkList() ([]netlink.Link, error) { return netlink.LinkList() }

func (s *Server) discoverInterfaces() error {
	links, err := s.links.LinkList()
	if err != nil {
		return fmt.Errorf("netlink link list: %w", err)
	}

	table := s.Engine.Interfaces()
	present := make(map[int]bool, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil {
			continue
		}
		present[attrs.Index] = true
		if table.ByIndex(attrs.Index) == nil {
			log.Debugf("[INIT] Discovered interface %s (ifindex %d)", attrs.Name, attrs.Index)
		}
		table.Add(addrconf.NewInterface(attrs.Index, attrs.Name))
	}

	for _, iface := range table.List() {
		if !present[iface.Index] {
			s.removeInterface(iface)
		}
	}
	return nil
}

// removeInterface drains a link that no longer exists and drops its
// stored leases.
func (s *Server) removeInterface(iface *addrconf.Interface) {
	leases := iface.Leases()
	if err := s.Engine.OnInterfaceRemoved(iface.Index); err != nil {
		log.Warnf("Removing %s: %v", iface.Name, err)
	}
	if s.Store == nil {
		return
	}
	for _, l := range leases {
		if err := s.Store.DeleteLease(slotOf(iface.Index, l)); err != nil {
			log.Errorf("Could not delete stored lease on %s: %v", iface.Name, err)
		}
	}
}

// ensureInterface refreshes the interface table once when ref is not
// known yet.
func (s *Server) ensureInterface(ref addrconf.InterfaceRef) {
	table := s.Engine.Interfaces()
	if ref.Index > 0 && table.ByIndex(ref.Index) != nil {
		return
	}
	if ref.Index <= 0 && (ref.Name == "" || table.ByName(ref.Name) != nil) {
		return
	}
	if err := s.discoverInterfaces(); err != nil {
		log.Warnf("Could not refresh interfaces: %v", err)
	}
}
