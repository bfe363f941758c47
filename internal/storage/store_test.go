package storage

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]LeaseStore {
	t.Helper()
	dir := t.TempDir()

	bolt, err := NewBoltStore(filepath.Join(dir, "leases.db"))
	if err != nil {
		t.Fatalf("Failed to open bolt store: %v", err)
	}
	sqlite, err := NewSqliteStore(filepath.Join(dir, "leases.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		bolt.Close()
		sqlite.Close()
	})
	return map[string]LeaseStore{"bolt": bolt, "sqlite": sqlite}
}

func TestLeaseStoreSaveGetDelete(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			slot := Slot{IfIndex: 2, Family: 1, Mechanism: 1}
			lease := &Lease{
				Slot:       slot,
				IfName:     "eth0",
				UUID:       "0b8f4a52-5d0e-4a8e-9c1b-7d35a2b7c001",
				AcquiredAt: time.Unix(1700000000, 42),
				Payload:    []byte{0x81, 0xa1, 0x61, 0x01},
			}

			if err := store.SaveLease(lease); err != nil {
				t.Fatalf("Failed to save lease: %v", err)
			}
			got, err := store.GetLease(slot)
			if err != nil || got == nil {
				t.Fatalf("Failed to get lease: %v", err)
			}
			if got.Slot != slot || got.IfName != "eth0" || got.UUID != lease.UUID {
				t.Errorf("Lease identity mismatch: %+v", got)
			}
			if !got.AcquiredAt.Equal(lease.AcquiredAt) {
				t.Errorf("Expected acquired=%v, got=%v", lease.AcquiredAt, got.AcquiredAt)
			}
			if !bytes.Equal(got.Payload, lease.Payload) {
				t.Errorf("Payload mismatch: %x", got.Payload)
			}

			if err := store.DeleteLease(slot); err != nil {
				t.Fatalf("Failed to delete lease: %v", err)
			}
			got, err = store.GetLease(slot)
			if err != nil || got != nil {
				t.Errorf("Expected no lease after delete, got=%+v err=%v", got, err)
			}
		})
	}
}

func TestLeaseStoreReplacesSlot(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			slot := Slot{IfIndex: 3, Family: 0, Mechanism: 1}
			for i, id := range []string{"first", "second"} {
				lease := &Lease{Slot: slot, IfName: "eth1", UUID: id, AcquiredAt: time.Unix(int64(100+i), 0)}
				if err := store.SaveLease(lease); err != nil {
					t.Fatalf("Failed to save lease %s: %v", id, err)
				}
			}

			leases, err := store.ListLeases()
			if err != nil {
				t.Fatalf("Failed to list leases: %v", err)
			}
			if len(leases) != 1 || leases[0].UUID != "second" {
				t.Errorf("Expected the second lease only, got=%d leases", len(leases))
			}
		})
	}
}

func TestLeaseStoreZeroAcquiredAt(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			slot := Slot{IfIndex: 4}
			if err := store.SaveLease(&Lease{Slot: slot, IfName: "eth2"}); err != nil {
				t.Fatalf("Failed to save lease: %v", err)
			}
			got, err := store.GetLease(slot)
			if err != nil || got == nil {
				t.Fatalf("Failed to get lease: %v", err)
			}
			if !got.AcquiredAt.IsZero() {
				t.Errorf("Expected zero acquired time, got=%v", got.AcquiredAt)
			}
		})
	}
}

func TestLeaseStoreGetLeaseByUUID(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			slot := Slot{IfIndex: 5, Family: 1, Mechanism: 4}
			if err := store.SaveLease(&Lease{Slot: slot, IfName: "ib0", UUID: "abc"}); err != nil {
				t.Fatalf("Failed to save lease: %v", err)
			}
			got, err := store.GetLeaseByUUID("abc")
			if err != nil || got == nil || got.Slot != slot || got.IfName != "ib0" {
				t.Fatalf("Expected lease in slot %s, got=%+v err=%v", slot, got, err)
			}

			if err := store.SaveLease(&Lease{Slot: slot, IfName: "ib0", UUID: "def"}); err != nil {
				t.Fatalf("Failed to replace lease: %v", err)
			}
			if got, _ := store.GetLeaseByUUID("abc"); got != nil {
				t.Errorf("Expected stale uuid to resolve to nothing, got=%+v", got)
			}
			if got, _ := store.GetLeaseByUUID("missing"); got != nil {
				t.Errorf("Expected unknown uuid to resolve to nothing")
			}
		})
	}
}
