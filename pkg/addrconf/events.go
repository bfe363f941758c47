package addrconf

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/internal/metrics"
)

// InterfaceRef names an interface by ifindex, or by name when the index
// is zero.
type InterfaceRef struct {
	Index int
	Name  string
}

func (r InterfaceRef) String() string {
	if r.Index > 0 {
		return fmt.Sprintf("ifindex %d", r.Index)
	}
	return r.Name
}

func (e *Engine) resolve(ref InterfaceRef, event string) (*Interface, error) {
	var iface *Interface
	if ref.Index > 0 {
		iface = e.interfaces.ByIndex(ref.Index)
	} else if ref.Name != "" {
		iface = e.interfaces.ByName(ref.Name)
	}
	if iface == nil {
		metrics.NotificationsDropped.WithLabelValues("unknown_interface").Inc()
		log.Warnf("received %s for unknown interface %s", event, ref)
		return nil, fmt.Errorf("%s for %s: %w", event, ref, ErrUnknownInterface)
	}
	return iface, nil
}

// OnLeaseGranted stores a freshly granted lease in its slot and arbitrates.
func (e *Engine) OnLeaseGranted(ref InterfaceRef, lease *Lease) error {
	metrics.LeaseEvents.WithLabelValues("granted").Inc()

	iface, err := e.resolve(ref, "lease granted")
	if err != nil {
		return err
	}
	if lease == nil || lease.State != StateGranted {
		metrics.NotificationsDropped.WithLabelValues("unexpected_state").Inc()
		return fmt.Errorf("lease granted on %s: unexpected lease state: %w", iface.Name, ErrInvalidLease)
	}

	l := *lease
	if l.UUID == "" {
		l.UUID = uuid.NewString()
	}
	// fallback ranks by age; an unstamped lease must not pass for the oldest
	if l.AcquiredAt.IsZero() {
		l.AcquiredAt = time.Now()
	}

	log.Infof("[LEASE] %s granted on %s", &l, iface.Name)
	iface.SetLease(&l)
	return e.UpdateFromLease(iface, &l)
}

// OnLeaseReleased handles a lease given up on purpose.
func (e *Engine) OnLeaseReleased(ref InterfaceRef, lease *Lease) error {
	metrics.LeaseEvents.WithLabelValues("released").Inc()
	return e.drop(ref, lease, StateReleased, "lease released")
}

// OnLeaseLost handles a lease lost involuntarily.
func (e *Engine) OnLeaseLost(ref InterfaceRef, lease *Lease) error {
	metrics.LeaseEvents.WithLabelValues("lost").Inc()
	return e.drop(ref, lease, StateFailed, "lease lost")
}

func (e *Engine) drop(ref InterfaceRef, lease *Lease, state State, event string) error {
	iface, err := e.resolve(ref, event)
	if err != nil {
		return err
	}
	if lease == nil {
		return fmt.Errorf("%s on %s: %w", event, iface.Name, ErrInvalidLease)
	}

	l := lease.WithState(state)
	log.Infof("[LEASE] %s on %s", l, iface.Name)

	iface.SetLease(l)
	err = e.UpdateFromLease(iface, l)
	iface.ClearLease(l.Family, l.Mechanism)
	return err
}

// OnRequest attaches a configuration request to an interface slot. A lease
// already held in that slot is arbitrated again under the new request.
func (e *Engine) OnRequest(ref InterfaceRef, req *Request) error {
	metrics.LeaseEvents.WithLabelValues("request").Inc()

	iface, err := e.resolve(ref, "addrconf request")
	if err != nil {
		return err
	}
	if req == nil || !req.Family.Valid() || !req.Mechanism.Valid() {
		return fmt.Errorf("addrconf request on %s: invalid request", iface.Name)
	}

	log.Infof("[REQUEST] %s/%s on %s may update %s", req.Mechanism, req.Family, iface.Name, req.Update)
	iface.SetRequest(req)

	if l := iface.Lease(req.Family, req.Mechanism); l != nil {
		return e.UpdateFromLease(iface, l)
	}
	return nil
}

// OnInterfaceRemoved drains every lease slot of a vanished interface and
// drops it from the table. Targets it owned fall back to the remaining
// interfaces.
func (e *Engine) OnInterfaceRemoved(index int) error {
	iface := e.interfaces.ByIndex(index)
	if iface == nil {
		return fmt.Errorf("interface removed: ifindex %d: %w", index, ErrUnknownInterface)
	}
	e.interfaces.Remove(index)
	log.Infof("[LINK] %s (ifindex %d) is gone, dropping its leases", iface.Name, index)

	var errs []error
	for _, lease := range iface.Leases() {
		l := lease.WithState(StateFailed)
		iface.SetLease(l)
		if err := e.UpdateFromLease(iface, l); err != nil {
			errs = append(errs, err)
		}
		iface.ClearLease(l.Family, l.Mechanism)
	}
	return errors.Join(errs...)
}
