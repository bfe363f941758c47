package addrconf

import (
	"fmt"
	"math/bits"
	"strings"
)

// Target is a global system resource that at most one lease configures at
// a time.
type Target uint8

const (
	TargetHostname Target = iota
	TargetResolver
	TargetNIS
	TargetDefaultRoute

	numTargets
)

var targetNames = [numTargets]string{
	TargetHostname:     "hostname",
	TargetResolver:     "resolver",
	TargetNIS:          "nis",
	TargetDefaultRoute: "default-route",
}

func (t Target) String() string {
	if t < numTargets {
		return targetNames[t]
	}
	return fmt.Sprintf("target(%d)", uint8(t))
}

func (t Target) Valid() bool {
	return t < numTargets
}

func ParseTarget(name string) (Target, error) {
	n := strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	for t, tn := range targetNames {
		if tn == n {
			return Target(t), nil
		}
	}
	return 0, fmt.Errorf("unknown update target %q", name)
}

// TargetSet is a bitset over Target.
type TargetSet uint32

const AllTargets TargetSet = 1<<numTargets - 1

func NewTargetSet(targets ...Target) TargetSet {
	var s TargetSet
	for _, t := range targets {
		s = s.Add(t)
	}
	return s
}

func ParseTargetSet(names []string) (TargetSet, error) {
	var s TargetSet
	for _, n := range names {
		t, err := ParseTarget(n)
		if err != nil {
			return 0, err
		}
		s = s.Add(t)
	}
	return s, nil
}

func (s TargetSet) Has(t Target) bool {
	return t.Valid() && s&(1<<t) != 0
}

func (s TargetSet) Add(t Target) TargetSet {
	if !t.Valid() {
		return s
	}
	return s | 1<<t
}

func (s TargetSet) Remove(t Target) TargetSet {
	return s &^ (1 << t)
}

func (s TargetSet) Intersect(o TargetSet) TargetSet {
	return s & o
}

func (s TargetSet) Union(o TargetSet) TargetSet {
	return s | o
}

func (s TargetSet) Empty() bool {
	return s&AllTargets == 0
}

func (s TargetSet) Len() int {
	return bits.OnesCount32(uint32(s & AllTargets))
}

// Targets lists the members in ascending order.
func (s TargetSet) Targets() []Target {
	out := make([]Target, 0, s.Len())
	for t := Target(0); t < numTargets; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TargetSet) String() string {
	if s.Empty() {
		return "none"
	}
	names := make([]string, 0, s.Len())
	for _, t := range s.Targets() {
		names = append(names, t.String())
	}
	return strings.Join(names, ",")
}
