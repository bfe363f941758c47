package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}

	return &RedisStore{client: client, ctx: ctx}, nil
}

func (s *RedisStore) SaveLease(lease *Lease) error {
	data, err := json.Marshal(lease)
	if err != nil {
		return err
	}
	slotKey := leaseKeyBySlot(lease.Slot)

	pipe := s.client.TxPipeline()
	if old, err := s.get(slotKey); err == nil && old != nil && old.UUID != "" && old.UUID != lease.UUID {
		pipe.Del(s.ctx, leaseKeyByUUID(old.UUID))
	}
	pipe.Set(s.ctx, slotKey, data, 0)
	if lease.UUID != "" {
		pipe.Set(s.ctx, leaseKeyByUUID(lease.UUID), slotKey, 0)
	}
	_, err = pipe.Exec(s.ctx)
	return err
}

func (s *RedisStore) GetLease(slot Slot) (*Lease, error) {
	return s.get(leaseKeyBySlot(slot))
}

func (s *RedisStore) GetLeaseByUUID(id string) (*Lease, error) {
	slotKey, err := s.client.Get(s.ctx, leaseKeyByUUID(id)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return s.get(slotKey)
}

func (s *RedisStore) get(key string) (*Lease, error) {
	data, err := s.client.Get(s.ctx, key).Bytes()

	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var lease Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, err
	}
	return &lease, nil
}

func (s *RedisStore) DeleteLease(slot Slot) error {
	slotKey := leaseKeyBySlot(slot)
	lease, err := s.get(slotKey)
	if err != nil || lease == nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, slotKey)
	if lease.UUID != "" {
		pipe.Del(s.ctx, leaseKeyByUUID(lease.UUID))
	}
	_, err = pipe.Exec(s.ctx)
	return err
}

func (s *RedisStore) ListLeases() ([]*Lease, error) {
	var leases []*Lease
	var cursor uint64

	for {
		keys, nextCursor, err := s.client.Scan(s.ctx, cursor, "addrconf:lease:slot:*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			lease, err := s.get(key)
			if err != nil || lease == nil {
				continue
			}
			leases = append(leases, lease)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return leases, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func leaseKeyBySlot(slot Slot) string {
	return fmt.Sprintf("addrconf:lease:slot:%s", slot)
}

func leaseKeyByUUID(id string) string {
	return fmt.Sprintf("addrconf:lease:uuid:%s", id)
}
