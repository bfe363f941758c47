package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = createTable(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SqliteStore{db}, nil
}

func createTable(db *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS leases (
    ifindex INTEGER NOT NULL,
    family INTEGER NOT NULL,
    mechanism INTEGER NOT NULL,
    ifname TEXT NOT NULL,
    uuid TEXT NOT NULL,
    acquired_at INTEGER NOT NULL,
    payload BLOB,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (ifindex, family, mechanism)
	);
	CREATE INDEX IF NOT EXISTS leases_uuid ON leases (uuid);
	`

	_, err := db.Exec(query)
	return err
}

func (s *SqliteStore) SaveLease(lease *Lease) error {
	query := `INSERT OR REPLACE INTO leases (ifindex, family, mechanism, ifname, uuid, acquired_at, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`

	_, err := s.db.Exec(query, lease.IfIndex, lease.Family, lease.Mechanism, lease.IfName,
		lease.UUID, unixNano(lease.AcquiredAt), lease.Payload, time.Now())
	return err
}

func (s *SqliteStore) GetLease(slot Slot) (*Lease, error) {
	lease := Lease{Slot: slot}
	var acquired int64

	query := `SELECT ifname, uuid, acquired_at, payload FROM leases
		WHERE ifindex = ? AND family = ? AND mechanism = ?;`
	row := s.db.QueryRow(query, slot.IfIndex, slot.Family, slot.Mechanism)
	err := row.Scan(
		&lease.IfName,
		&lease.UUID,
		&acquired,
		&lease.Payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lease.AcquiredAt = fromUnixNano(acquired)
	return &lease, nil
}

func (s *SqliteStore) GetLeaseByUUID(id string) (*Lease, error) {
	var lease Lease
	var acquired int64

	query := `SELECT ifindex, family, mechanism, ifname, acquired_at, payload FROM leases WHERE uuid = ?;`
	row := s.db.QueryRow(query, id)
	err := row.Scan(
		&lease.IfIndex,
		&lease.Family,
		&lease.Mechanism,
		&lease.IfName,
		&acquired,
		&lease.Payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lease.UUID = id
	lease.AcquiredAt = fromUnixNano(acquired)
	return &lease, nil
}

func (s *SqliteStore) DeleteLease(slot Slot) error {
	query := `DELETE FROM leases WHERE ifindex = ? AND family = ? AND mechanism = ?;`
	_, err := s.db.Exec(query, slot.IfIndex, slot.Family, slot.Mechanism)
	return err
}

func (s *SqliteStore) ListLeases() ([]*Lease, error) {
	var leases []*Lease

	query := `SELECT ifindex, family, mechanism, ifname, uuid, acquired_at, payload
		FROM leases ORDER BY acquired_at;`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lease Lease
		var acquired int64
		err := rows.Scan(
			&lease.IfIndex,
			&lease.Family,
			&lease.Mechanism,
			&lease.IfName,
			&lease.UUID,
			&acquired,
			&lease.Payload,
		)
		if err != nil {
			return nil, err
		}
		lease.AcquiredAt = fromUnixNano(acquired)
		leases = append(leases, &lease)
	}

	return leases, rows.Err()
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}
