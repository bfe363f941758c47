package addrconf

// FindFallback returns the oldest valid lease, across all interfaces,
// families and mechanisms, that is able to supply t.
func (e *Engine) FindFallback(t Target) (*Interface, *Lease) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findFallback(t, Source{IfIndex: -1})
}

// findFallback skips the slot named by exclude. Candidates are visited by
// ifindex, family, then mechanism, and only a strictly older lease
// displaces the current best, so ties resolve in that order.
func (e *Engine) findFallback(t Target, exclude Source) (*Interface, *Lease) {
	var (
		bestIface *Interface
		bestLease *Lease
	)

	for _, iface := range e.interfaces.List() {
		for f := Family(0); f < numFamilies; f++ {
			for m := Mechanism(0); m < numMechanisms; m++ {
				if (Source{IfIndex: iface.Index, Mechanism: m, Family: f}) == exclude {
					continue
				}
				lease := iface.Lease(f, m)
				if lease == nil {
					continue
				}
				if !e.policy.PolicyMask(m).Has(t) {
					continue
				}
				if !LeaseCapabilities(lease, iface.RequestedMask(f, m)).Has(t) {
					continue
				}
				if bestLease == nil || lease.AcquiredAt.Before(bestLease.AcquiredAt) {
					bestIface, bestLease = iface, lease
				}
			}
		}
	}
	return bestIface, bestLease
}
