package addrconf

// Policy yields the administrator-configured set of targets a lease of the
// given mechanism may update.
type Policy interface {
	PolicyMask(m Mechanism) TargetSet
}

// PolicyMap is a static Policy. Mechanisms missing from the map may update
// nothing.
type PolicyMap map[Mechanism]TargetSet

func (p PolicyMap) PolicyMask(m Mechanism) TargetSet {
	return p[m]
}

// LeaseCapabilities returns the targets lease can supply: it must be valid,
// carry the payload for the target, and the target must be in requested.
func LeaseCapabilities(lease *Lease, requested TargetSet) TargetSet {
	if !lease.Valid() {
		return 0
	}
	return lease.Offers().Intersect(requested)
}
