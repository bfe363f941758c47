package addrconf

// ownership records, per target, the lease slot that last configured it.
type ownership struct {
	owners [numTargets]Source
	held   TargetSet
}

func (o *ownership) get(t Target) (Source, bool) {
	if !o.held.Has(t) {
		return Source{}, false
	}
	return o.owners[t], true
}

func (o *ownership) set(t Target, src Source) {
	o.owners[t] = src
	o.held = o.held.Add(t)
}

func (o *ownership) clear(t Target) {
	o.owners[t] = Source{}
	o.held = o.held.Remove(t)
}

func (o *ownership) snapshot() map[Target]Source {
	out := make(map[Target]Source, o.held.Len())
	for _, t := range o.held.Targets() {
		out[t] = o.owners[t]
	}
	return out
}
