package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/internal/metrics"
	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

// HandleNotification decodes one datagram and runs it through the engine.
// Failures are logged; the caller keeps reading.
func (s *Server) HandleNotification(data []byte) {
	n, err := addrconf.DecodeNotification(data)
	if err != nil {
		metrics.NotificationsDropped.WithLabelValues("decode").Inc()
		log.Errorf("Error decoding notification: %v", err)
		return
	}

	s.ensureInterface(n.Iface)

	switch n.Event {
	case addrconf.EventGranted:
		err = s.Engine.OnLeaseGranted(n.Iface, n.Lease)
		s.persistGranted(n.Iface, n.Lease, err)
	case addrconf.EventReleased:
		err = s.Engine.OnLeaseReleased(n.Iface, n.Lease)
		s.forget(n.Iface, n.Lease, err)
	case addrconf.EventLost:
		err = s.Engine.OnLeaseLost(n.Iface, n.Lease)
		s.forget(n.Iface, n.Lease, err)
	case addrconf.EventRequest:
		err = s.Engine.OnRequest(n.Iface, n.Request)
	}

	var uerr *addrconf.UpdateError
	switch {
	case errors.As(err, &uerr):
		log.Warnf("[%s] %s: %v", n.Event, n.Iface, err)
	case err != nil:
		log.Errorf("[%s] %s: %v", n.Event, n.Iface, err)
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		for t, src := range s.Engine.Owners() {
			log.Debugf("[OWNER] %s -> %s", t, src)
		}
	}
}

// rejected reports whether the engine refused the notification before
// touching any lease slot.
func rejected(err error) bool {
	return errors.Is(err, addrconf.ErrUnknownInterface) || errors.Is(err, addrconf.ErrInvalidLease)
}

func (s *Server) persistGranted(ref addrconf.InterfaceRef, lease *addrconf.Lease, err error) {
	if s.Store == nil || rejected(err) {
		return
	}
	iface := s.lookup(ref)
	if iface == nil {
		return
	}
	// The slot holds the copy the engine stamped with a UUID.
	stored := iface.Lease(lease.Family, lease.Mechanism)
	if stored == nil {
		return
	}
	if err := s.saveLease(iface, stored); err != nil {
		log.Errorf("Could not persist lease %s: %v", stored.UUID, err)
	}
}

func (s *Server) forget(ref addrconf.InterfaceRef, lease *addrconf.Lease, err error) {
	if s.Store == nil || rejected(err) {
		return
	}
	iface := s.lookup(ref)
	if iface == nil {
		return
	}
	if err := s.Store.DeleteLease(slotOf(iface.Index, lease)); err != nil {
		log.Errorf("Could not delete stored lease on %s: %v", iface.Name, err)
	}

	// A record written before the interface was renumbered sits under
	// another slot; find it by the lease identity.
	if lease.UUID == "" {
		return
	}
	rec, err := s.Store.GetLeaseByUUID(lease.UUID)
	if err != nil {
		log.Errorf("Could not look up stored lease %s: %v", lease.UUID, err)
		return
	}
	if rec != nil {
		if err := s.Store.DeleteLease(rec.Slot); err != nil {
			log.Errorf("Could not delete stored lease %s: %v", lease.UUID, err)
		}
	}
}

func (s *Server) lookup(ref addrconf.InterfaceRef) *addrconf.Interface {
	if ref.Index > 0 {
		return s.Engine.Interfaces().ByIndex(ref.Index)
	}
	return s.Engine.Interfaces().ByName(ref.Name)
}

// Notify sends one notification to the daemon listening on socketPath.
func Notify(socketPath string, n *addrconf.Notification) error {
	data, err := addrconf.EncodeNotification(n)
	if err != nil {
		return err
	}
	if len(data) > maxNotificationSize {
		return fmt.Errorf("notification too large: %d bytes", len(data))
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: socketPath, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", socketPath, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Write(data)
	return err
}
