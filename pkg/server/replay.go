package server

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/internal/storage"
	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

func slotOf(ifindex int, l *addrconf.Lease) storage.Slot {
	return storage.Slot{
		IfIndex:   ifindex,
		Family:    uint8(l.Family),
		Mechanism: uint8(l.Mechanism),
	}
}

// saveLease stores l under its current slot. A record of the same lease
// left under another slot, from before a renumber, is removed.
func (s *Server) saveLease(iface *addrconf.Interface, l *addrconf.Lease) error {
	payload, err := addrconf.EncodeLease(l)
	if err != nil {
		return err
	}
	slot := slotOf(iface.Index, l)

	if l.UUID != "" {
		prev, err := s.Store.GetLeaseByUUID(l.UUID)
		if err != nil {
			return err
		}
		if prev != nil && prev.Slot != slot {
			log.Debugf("Moving stored lease %s from slot %s to %s", l.UUID, prev.Slot, slot)
			if err := s.Store.DeleteLease(prev.Slot); err != nil {
				return err
			}
		}
	}

	return s.Store.SaveLease(&storage.Lease{
		Slot:       slot,
		IfName:     iface.Name,
		UUID:       l.UUID,
		AcquiredAt: l.AcquiredAt,
		Payload:    payload,
	})
}

// replayLeases re-grants stored leases oldest first so that ownership
// comes out as it was before the restart. Records for interfaces that no
// longer exist are dropped.
func (s *Server) replayLeases() error {
	records, err := s.Store.ListLeases()
	if err != nil {
		return err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AcquiredAt.Before(records[j].AcquiredAt)
	})

	table := s.Engine.Interfaces()
	replayed := 0
	for _, rec := range records {
		lease, err := addrconf.DecodeLease(rec.Payload)
		if err != nil {
			log.Warnf("Dropping unreadable stored lease %s: %v", rec.Slot, err)
			s.Store.DeleteLease(rec.Slot)
			continue
		}

		iface := table.ByIndex(rec.IfIndex)
		if iface == nil || iface.Name != rec.IfName {
			// ifindex values are not stable across reboots; names usually are.
			iface = table.ByName(rec.IfName)
		}
		if iface == nil {
			log.Infof("Dropping stored lease %s: interface %s is gone", rec.UUID, rec.IfName)
			s.Store.DeleteLease(rec.Slot)
			continue
		}
		if iface.Index != rec.IfIndex {
			s.Store.DeleteLease(rec.Slot)
		}

		ref := addrconf.InterfaceRef{Index: iface.Index, Name: iface.Name}
		err = s.Engine.OnLeaseGranted(ref, lease.WithState(addrconf.StateGranted))
		if rejected(err) {
			log.Warnf("Stored lease %s rejected: %v", rec.UUID, err)
			continue
		}
		if err != nil {
			log.Warnf("Replaying lease %s: %v", rec.UUID, err)
		}
		if l := iface.Lease(lease.Family, lease.Mechanism); l != nil && iface.Index != rec.IfIndex {
			if err := s.saveLease(iface, l); err != nil {
				log.Errorf("Could not re-key stored lease %s: %v", rec.UUID, err)
			}
		}
		replayed++
	}

	if replayed > 0 {
		log.Infof("[INIT] Replayed %d stored leases", replayed)
	}
	return nil
}
