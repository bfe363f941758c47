package addrconf

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/internal/metrics"
)

// Engine decides which lease is authoritative for each global target and
// drives the target handlers accordingly. Calls into the engine are
// serialized.
type Engine struct {
	mu         sync.Mutex
	registry   *Registry
	policy     Policy
	interfaces *InterfaceTable
	owners     ownership
	backedUp   TargetSet
}

func NewEngine(registry *Registry, policy Policy, interfaces *InterfaceTable) *Engine {
	if policy == nil {
		policy = PolicyMap{}
	}
	if interfaces == nil {
		interfaces = NewInterfaceTable()
	}
	return &Engine{
		registry:   registry,
		policy:     policy,
		interfaces: interfaces,
	}
}

func (e *Engine) Interfaces() *InterfaceTable {
	return e.interfaces
}

// EngineCapabilities returns the targets this system is able to manage.
func (e *Engine) EngineCapabilities() TargetSet {
	return e.registry.Capabilities()
}

func (e *Engine) Owner(t Target) (Source, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owners.get(t)
}

// Owners returns a snapshot of the ownership table.
func (e *Engine) Owners() map[Target]Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owners.snapshot()
}

// UpdateFromLease reconciles the ownership table against a lease
// transition on iface. Every permitted target is processed even when some
// handlers fail; the returned *UpdateError lists the failed ones.
func (e *Engine) UpdateFromLease(iface *Interface, lease *Lease) error {
	if iface == nil || lease == nil {
		return fmt.Errorf("update from lease: %w", ErrInvalidLease)
	}
	if !lease.Family.Valid() || !lease.Mechanism.Valid() {
		return fmt.Errorf("update from %s lease on %s: %w", lease.Mechanism, iface.Name, ErrInvalidLease)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.UpdateLatency.Observe(time.Since(start).Seconds())
	}()

	src := Source{IfIndex: iface.Index, Mechanism: lease.Mechanism, Family: lease.Family}
	logger := log.WithFields(log.Fields{
		"interface": iface.Name,
		"mechanism": lease.Mechanism,
		"family":    lease.Family,
		"state":     lease.State,
	})

	permitted := e.policy.PolicyMask(lease.Mechanism).Intersect(e.EngineCapabilities())
	if permitted.Empty() {
		logger.Debug("lease mechanism may not update any target")
		return nil
	}

	offered := LeaseCapabilities(lease, iface.RequestedMask(lease.Family, lease.Mechanism))
	uerr := &UpdateError{Source: src}
	var revoked TargetSet

	for _, t := range permitted.Targets() {
		owner, owned := e.owners.get(t)

		switch {
		case !owned:
			if !offered.Has(t) {
				continue
			}
			if err := e.apply(t, iface, lease); err != nil {
				uerr.add(t, err)
				revoked = revoked.Add(t)
				continue
			}
			e.owners.set(t, src)

		case owner == src:
			if !offered.Has(t) {
				// released, lost, or the payload no longer carries the target
				logger.WithField("target", t).Info("lease no longer provides target, revoking")
				e.owners.clear(t)
				revoked = revoked.Add(t)
				continue
			}
			if err := e.apply(t, iface, lease); err != nil {
				uerr.add(t, err)
				e.owners.clear(t)
				revoked = revoked.Add(t)
			}

		default:
			if offered.Has(t) {
				logger.WithFields(log.Fields{"target": t, "owner": owner}).
					Debug("target owned by another lease, not overriding")
			}
		}
	}

	for _, t := range revoked.Targets() {
		if err := e.replace(t, src); err != nil {
			uerr.add(t, err)
		}
	}

	e.publishOwnership()
	return uerr.orNil()
}

// replace configures t from the best alternate lease, or restores the
// system default when there is none. exclude is the slot that just gave
// up t.
func (e *Engine) replace(t Target, exclude Source) error {
	logger := log.WithField("target", t)

	iface, lease := e.findFallback(t, exclude)
	if lease == nil {
		metrics.Fallbacks.WithLabelValues(t.String(), "none").Inc()
		logger.Info("no alternate lease provides target, restoring system default")
		e.restore(t)
		return nil
	}

	err := e.apply(t, iface, lease)
	metrics.Fallbacks.WithLabelValues(t.String(), metrics.Result(err)).Inc()
	if err != nil {
		logger.Warnf("fallback to %s on %s failed, restoring system default", lease, iface.Name)
		e.restore(t)
		return err
	}

	e.owners.set(t, Source{IfIndex: iface.Index, Mechanism: lease.Mechanism, Family: lease.Family})
	logger.Infof("target now provided by %s on %s", lease, iface.Name)
	return nil
}

func (e *Engine) apply(t Target, iface *Interface, lease *Lease) error {
	h := e.registry.Handler(t)
	if h == nil {
		return nil
	}

	logger := log.WithFields(log.Fields{
		"interface": iface.Name,
		"mechanism": lease.Mechanism,
		"family":    lease.Family,
		"target":    t,
	})
	logger.Debug("configuring target from lease")

	if !e.backedUp.Has(t) {
		if b, ok := h.(Backupper); ok {
			if err := b.Backup(); err != nil {
				metrics.HandlerApplies.WithLabelValues(t.String(), metrics.Result(err)).Inc()
				logger.Errorf("unable to back up original configuration: %v", err)
				return fmt.Errorf("backup %s: %w", t, err)
			}
		}
		e.backedUp = e.backedUp.Add(t)
	}

	err := h.Apply(lease)
	metrics.HandlerApplies.WithLabelValues(t.String(), metrics.Result(err)).Inc()
	if err != nil {
		logger.Errorf("failed to update %s from %s/%s lease: %v", t, lease.Mechanism, lease.Family, err)
		return fmt.Errorf("apply %s: %w", t, err)
	}
	return nil
}

// restore is best effort; a failure persists until the next transition.
func (e *Engine) restore(t Target) {
	h := e.registry.Handler(t)
	if h == nil {
		return
	}

	err := h.Restore()
	metrics.HandlerRestores.WithLabelValues(t.String(), metrics.Result(err)).Inc()
	if err != nil {
		log.WithField("target", t).Errorf("failed to restore system default: %v", err)
		return
	}
	e.backedUp = e.backedUp.Remove(t)
}

func (e *Engine) publishOwnership() {
	for t := Target(0); t < numTargets; t++ {
		v := 0.0
		if e.owners.held.Has(t) {
			v = 1
		}
		metrics.TargetOwned.WithLabelValues(t.String()).Set(v)
	}
}
