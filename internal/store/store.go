// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package store caches raw simulateTransaction responses in sqlite, keyed by
// the hash of the simulated transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SimulationStore persists raw simulation responses.
type SimulationStore struct {
	db  *sql.DB
	now func() time.Time
}

// Record is one cached simulation.
type Record struct {
	TxHash       string
	Envelope     string
	Outcome      string
	LatestLedger uint32
	Response     json.RawMessage
	CreatedAt    time.Time
}

func Open(path string) (*SimulationStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	s := &SimulationStore{db: db, now: time.Now}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SimulationStore) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS simulations (
            tx_hash TEXT PRIMARY KEY,
            envelope TEXT NOT NULL,
            outcome TEXT NOT NULL,
            latest_ledger INTEGER NOT NULL,
            response BLOB NOT NULL,
            created_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS simulations_created_at ON simulations(created_at);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Put stores rec, replacing any previous simulation of the same transaction.
func (s *SimulationStore) Put(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO simulations (tx_hash, envelope, outcome, latest_ledger, response, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(tx_hash) DO UPDATE SET
            envelope = excluded.envelope,
            outcome = excluded.outcome,
            latest_ledger = excluded.latest_ledger,
            response = excluded.response,
            created_at = excluded.created_at`,
		rec.TxHash, rec.Envelope, rec.Outcome, int64(rec.LatestLedger), []byte(rec.Response), rec.CreatedAt.UnixNano(),
	)
	return err
}

// Get returns the cached simulation of txHash. ok is false when none exists.
func (s *SimulationStore) Get(ctx context.Context, txHash string) (rec Record, ok bool, err error) {
	var (
		ledger    int64
		response  []byte
		createdAt int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT tx_hash, envelope, outcome, latest_ledger, response, created_at FROM simulations WHERE tx_hash = ?`, txHash)
	if err := row.Scan(&rec.TxHash, &rec.Envelope, &rec.Outcome, &ledger, &response, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	rec.LatestLedger = uint32(ledger)
	rec.Response = json.RawMessage(response)
	rec.CreatedAt = time.Unix(0, createdAt)
	return rec, true, nil
}

// Prune deletes simulations created before cutoff and reports how many went.
func (s *SimulationStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SimulationStore) Close() error {
	return s.db.Close()
}
