package main

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	bh1750fvi "github.com/denis-koshenkov/rohm-bh1750fvi"
)

const createSamples = `CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	lux INTEGER NOT NULL,
	mode TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Store appends measurement samples to a sqlite database. Every monitoring
// run gets its own job id so runs against the same file stay separable.
type Store struct {
	db    *sql.DB
	jobID string
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not connect to %s: %w", path, err)
	}
	if _, err := db.Exec(createSamples); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not create samples table: %w", err)
	}
	return &Store{db: db, jobID: uuid.New().String()}, nil
}

func (s *Store) JobID() string {
	return s.jobID
}

func (s *Store) Record(lux uint32, mode bh1750fvi.Mode) error {
	_, err := s.db.Exec(
		"INSERT INTO samples (job_id, lux, mode) VALUES (?, ?, ?)",
		s.jobID, lux, mode.String(),
	)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
