package addrconf

import (
	"sort"
	"sync"
)

type familyInfo struct {
	leases   [numMechanisms]*Lease
	requests [numMechanisms]*Request
}

// Interface holds the lease slots and configuration requests of one
// network interface, one slot per mechanism and address family.
type Interface struct {
	Index int
	Name  string

	mu sync.RWMutex
	af [numFamilies]familyInfo
}

func NewInterface(index int, name string) *Interface {
	return &Interface{Index: index, Name: name}
}

func (i *Interface) Lease(f Family, m Mechanism) *Lease {
	if !f.Valid() || !m.Valid() {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.af[f].leases[m]
}

// SetLease stores l in the slot named by its family and mechanism,
// replacing any previous lease in that slot.
func (i *Interface) SetLease(l *Lease) {
	if l == nil || !l.Family.Valid() || !l.Mechanism.Valid() {
		return
	}
	i.mu.Lock()
	i.af[l.Family].leases[l.Mechanism] = l
	i.mu.Unlock()
}

func (i *Interface) ClearLease(f Family, m Mechanism) {
	if !f.Valid() || !m.Valid() {
		return
	}
	i.mu.Lock()
	i.af[f].leases[m] = nil
	i.mu.Unlock()
}

// Leases returns the occupied lease slots ordered by family, then mechanism.
func (i *Interface) Leases() []*Lease {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var out []*Lease
	for f := range i.af {
		for _, l := range i.af[f].leases {
			if l != nil {
				out = append(out, l)
			}
		}
	}
	return out
}

func (i *Interface) Request(f Family, m Mechanism) *Request {
	if !f.Valid() || !m.Valid() {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.af[f].requests[m]
}

func (i *Interface) SetRequest(r *Request) {
	if r == nil || !r.Family.Valid() || !r.Mechanism.Valid() {
		return
	}
	i.mu.Lock()
	i.af[r.Family].requests[r.Mechanism] = r
	i.mu.Unlock()
}

// RequestedMask returns the update targets the request attached to the
// slot permits. A slot with no request is unrestricted.
func (i *Interface) RequestedMask(f Family, m Mechanism) TargetSet {
	if r := i.Request(f, m); r != nil {
		return r.Update
	}
	return AllTargets
}

// InterfaceTable indexes the known interfaces by ifindex and name.
type InterfaceTable struct {
	mu      sync.RWMutex
	byIndex map[int]*Interface
	byName  map[string]*Interface
}

func NewInterfaceTable() *InterfaceTable {
	return &InterfaceTable{
		byIndex: make(map[int]*Interface),
		byName:  make(map[string]*Interface),
	}
}

// Add registers iface. An interface already known under the same index
// keeps its lease slots and only picks up the new name.
func (t *InterfaceTable) Add(iface *Interface) *Interface {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byIndex[iface.Index]; ok {
		if old.Name != iface.Name {
			delete(t.byName, old.Name)
			old.mu.Lock()
			old.Name = iface.Name
			old.mu.Unlock()
			if old.Name != "" {
				t.byName[old.Name] = old
			}
		}
		return old
	}

	t.byIndex[iface.Index] = iface
	if iface.Name != "" {
		t.byName[iface.Name] = iface
	}
	return iface
}

func (t *InterfaceTable) Remove(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if iface, ok := t.byIndex[index]; ok {
		delete(t.byIndex, index)
		if iface.Name != "" {
			delete(t.byName, iface.Name)
		}
	}
}

func (t *InterfaceTable) ByIndex(index int) *Interface {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byIndex[index]
}

func (t *InterfaceTable) ByName(name string) *Interface {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byName[name]
}

// List returns all interfaces in ascending ifindex order.
func (t *InterfaceTable) List() []*Interface {
	t.mu.RLock()
	result := make([]*Interface, 0, len(t.byIndex))
	for _, iface := range t.byIndex {
		result = append(result, iface)
	}
	t.mu.RUnlock()

	sort.Slice(result, func(a, b int) bool {
		return result[a].Index < result[b].Index
	})
	return result
}
