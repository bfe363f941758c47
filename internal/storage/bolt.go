package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

type BoltStore struct {
	db *bolt.DB
}

var (
	slotBucket = []byte("leases_by_slot")
	uuidBucket = []byte("slots_by_uuid")
)

func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotBucket)
		if err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(uuidBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveLease(lease *Lease) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		slotBkt := tx.Bucket(slotBucket)
		uuidBkt := tx.Bucket(uuidBucket)
		if slotBkt == nil || uuidBkt == nil {
			return errors.New("missing buckets in DB")
		}

		key := lease.Slot.bytes()
		if old := slotBkt.Get(key); old != nil {
			if l, err := deserializeLease(key, old); err == nil && l.UUID != "" {
				if err := uuidBkt.Delete([]byte(l.UUID)); err != nil {
					return err
				}
			}
		}

		data, err := serializeLease(lease)
		if err != nil {
			return err
		}
		if e := slotBkt.Put(key, data); e != nil {
			return e
		}
		if lease.UUID == "" {
			return nil
		}
		return uuidBkt.Put([]byte(lease.UUID), key)
	})
}

func (s *BoltStore) GetLease(slot Slot) (*Lease, error) {
	var lease *Lease
	err := s.db.View(func(tx *bolt.Tx) error {
		slotBkt := tx.Bucket(slotBucket)
		if slotBkt == nil {
			return nil
		}

		key := slot.bytes()
		data := slotBkt.Get(key)
		if data == nil {
			return nil
		}

		l, err := deserializeLease(key, data)
		if err != nil {
			return err
		}

		lease = l
		return nil
	})
	return lease, err
}

// GetLeaseByUUID looks a lease up by its identity rather than its slot.
func (s *BoltStore) GetLeaseByUUID(id string) (*Lease, error) {
	var lease *Lease
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(uuidBucket).Get([]byte(id))
		if key == nil {
			return nil
		}
		data := tx.Bucket(slotBucket).Get(key)
		if data == nil {
			return nil
		}
		l, err := deserializeLease(key, data)
		if err != nil {
			return err
		}
		lease = l
		return nil
	})
	return lease, err
}

func (s *BoltStore) DeleteLease(slot Slot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		slotBkt := tx.Bucket(slotBucket)
		uuidBkt := tx.Bucket(uuidBucket)

		if slotBkt == nil || uuidBkt == nil {
			return nil
		}
		key := slot.bytes()
		data := slotBkt.Get(key)
		if data == nil {
			return nil
		}

		l, err := deserializeLease(key, data)
		if err != nil {
			return err
		}

		if err := slotBkt.Delete(key); err != nil {
			return err
		}
		if l.UUID == "" {
			return nil
		}
		return uuidBkt.Delete([]byte(l.UUID))
	})
}

func (s *BoltStore) ListLeases() ([]*Lease, error) {
	var leases []*Lease
	err := s.db.View(func(tx *bolt.Tx) error {
		slotBkt := tx.Bucket(slotBucket)
		if slotBkt == nil {
			return nil
		}
		c := slotBkt.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			l, err := deserializeLease(k, v)
			if err != nil {
				continue
			}
			leases = append(leases, l)
		}
		return nil
	})
	return leases, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Record layout: acquiredAt (8, unix nanos) | len(name) (1) | name |
// len(uuid) (1) | uuid | payload.
func serializeLease(l *Lease) ([]byte, error) {
	if len(l.IfName) > 255 || len(l.UUID) > 255 {
		return nil, fmt.Errorf("lease %s: name or uuid too long", l.Slot)
	}

	out := make([]byte, 0, 10+len(l.IfName)+len(l.UUID)+len(l.Payload))
	out = binary.BigEndian.AppendUint64(out, uint64(unixNano(l.AcquiredAt)))
	out = append(out, byte(len(l.IfName)))
	out = append(out, l.IfName...)
	out = append(out, byte(len(l.UUID)))
	out = append(out, l.UUID...)
	out = append(out, l.Payload...)

	return out, nil
}

func deserializeLease(key, data []byte) (*Lease, error) {
	if len(key) != 6 {
		return nil, fmt.Errorf("invalid slot key length, want 6, got %d", len(key))
	}
	if len(data) < 10 {
		return nil, fmt.Errorf("invalid data length for lease, want >=10, got %d", len(data))
	}

	l := &Lease{
		Slot: Slot{
			IfIndex:   int(binary.BigEndian.Uint32(key[0:4])),
			Family:    key[4],
			Mechanism: key[5],
		},
		AcquiredAt: fromUnixNano(int64(binary.BigEndian.Uint64(data[0:8]))),
	}

	rest := data[8:]
	n := int(rest[0])
	if len(rest) < 1+n+1 {
		return nil, fmt.Errorf("truncated lease record for slot %s", l.Slot)
	}
	l.IfName = string(rest[1 : 1+n])
	rest = rest[1+n:]

	n = int(rest[0])
	if len(rest) < 1+n {
		return nil, fmt.Errorf("truncated lease record for slot %s", l.Slot)
	}
	l.UUID = string(rest[1 : 1+n])
	l.Payload = append([]byte(nil), rest[1+n:]...)

	return l, nil
}
