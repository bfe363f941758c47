package storage

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Slot identifies one lease slot: interface, address family and
// addrconf mechanism.
type Slot struct {
	IfIndex   int
	Family    uint8
	Mechanism uint8
}

func (s Slot) String() string {
	return fmt.Sprintf("%d:%d:%d", s.IfIndex, s.Family, s.Mechanism)
}

func (s Slot) bytes() []byte {
	out := make([]byte, 6)
	binary.BigEndian.PutUint32(out[0:4], uint32(s.IfIndex))
	out[4] = s.Family
	out[5] = s.Mechanism
	return out
}

// Lease is a persisted granted lease. Payload holds the encoded lease
// body and is opaque to the store.
type Lease struct {
	Slot
	IfName     string
	UUID       string
	AcquiredAt time.Time
	Payload    []byte
}

type LeaseStore interface {
	SaveLease(lease *Lease) error
	GetLease(slot Slot) (*Lease, error)
	GetLeaseByUUID(id string) (*Lease, error)
	DeleteLease(slot Slot) error
	ListLeases() ([]*Lease, error)
	Close() error
}

// unixNano maps the zero time to 0 instead of an overflowed value.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
