package addrconf

import (
	"fmt"
	"net"
	"strings"
	"time"
)

type Mechanism uint8

const (
	MechanismStatic Mechanism = iota
	MechanismDHCP
	MechanismAutoconf
	MechanismIPv4LL
	MechanismIBFT

	numMechanisms
)

var mechanismNames = [numMechanisms]string{
	MechanismStatic:   "static",
	MechanismDHCP:     "dhcp",
	MechanismAutoconf: "autoconf",
	MechanismIPv4LL:   "ipv4ll",
	MechanismIBFT:     "ibft",
}

func (m Mechanism) String() string {
	if m < numMechanisms {
		return mechanismNames[m]
	}
	return fmt.Sprintf("mechanism(%d)", uint8(m))
}

func (m Mechanism) Valid() bool {
	return m < numMechanisms
}

func ParseMechanism(name string) (Mechanism, error) {
	for m, n := range mechanismNames {
		if strings.EqualFold(n, name) {
			return Mechanism(m), nil
		}
	}
	return 0, fmt.Errorf("unknown addrconf mechanism %q", name)
}

// Mechanisms returns every known mechanism in ascending order.
func Mechanisms() []Mechanism {
	out := make([]Mechanism, 0, numMechanisms)
	for m := Mechanism(0); m < numMechanisms; m++ {
		out = append(out, m)
	}
	return out
}

type Family uint8

const (
	FamilyIPv4 Family = iota
	FamilyIPv6

	numFamilies
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

func (f Family) Valid() bool {
	return f < numFamilies
}

func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(name) {
	case "ipv4", "inet", "4":
		return FamilyIPv4, nil
	case "ipv6", "inet6", "6":
		return FamilyIPv6, nil
	}
	return 0, fmt.Errorf("unknown address family %q", name)
}

type State uint8

const (
	StateGranted State = iota
	StateReleased
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateGranted:
		return "granted"
	case StateReleased:
		return "released"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

type NISBinding uint8

const (
	NISBindingStatic NISBinding = iota
	NISBindingBroadcast
	NISBindingSLP
)

func (b NISBinding) String() string {
	switch b {
	case NISBindingStatic:
		return "static"
	case NISBindingBroadcast:
		return "broadcast"
	case NISBindingSLP:
		return "slp"
	default:
		return fmt.Sprintf("binding(%d)", uint8(b))
	}
}

type ResolverInfo struct {
	DefaultDomain string
	Servers       []string
	Search        []string
}

type NISDomain struct {
	Name    string
	Binding NISBinding
	Servers []string
}

type NISInfo struct {
	DomainName     string
	DefaultBinding NISBinding
	DefaultServers []string
	Domains        []NISDomain
}

type RouteInfo struct {
	Gateway net.IP
	Metric  int
}

// Lease is the configuration one mechanism obtained for one interface and
// address family. The engine never modifies a lease it is handed.
type Lease struct {
	UUID       string
	Mechanism  Mechanism
	Family     Family
	State      State
	AcquiredAt time.Time

	Hostname     string
	Resolver     *ResolverInfo
	NIS          *NISInfo
	DefaultRoute *RouteInfo
}

func (l *Lease) Valid() bool {
	return l != nil && l.State == StateGranted
}

// Offers reports which targets the lease payload carries data for,
// regardless of validity or policy.
func (l *Lease) Offers() TargetSet {
	var set TargetSet
	if l == nil {
		return set
	}
	if l.Hostname != "" {
		set = set.Add(TargetHostname)
	}
	if l.Resolver != nil {
		set = set.Add(TargetResolver)
	}
	if l.NIS != nil {
		set = set.Add(TargetNIS)
	}
	if l.DefaultRoute != nil && l.DefaultRoute.Gateway != nil {
		set = set.Add(TargetDefaultRoute)
	}
	return set
}

// WithState returns a shallow copy of the lease in the given state.
func (l *Lease) WithState(s State) *Lease {
	c := *l
	c.State = s
	return &c
}

func (l *Lease) String() string {
	return fmt.Sprintf("%s/%s lease %s (%s)", l.Mechanism, l.Family, l.UUID, l.State)
}

// Request is the configuration request attached to an interface slot when
// address configuration was requested. Update lists the targets the
// requester wants managed from the resulting lease.
type Request struct {
	Mechanism Mechanism
	Family    Family
	Update    TargetSet
}

// Source identifies the lease slot a target's configuration came from.
type Source struct {
	IfIndex   int
	Mechanism Mechanism
	Family    Family
}

func (s Source) String() string {
	return fmt.Sprintf("ifindex %d %s/%s", s.IfIndex, s.Mechanism, s.Family)
}
