// Package localstore is the fallback reservation store used when no
// remote endpoint is configured. It keeps a single serialized sequence of
// reservation records under a fixed storage key; rows are filtered by
// date client-side. There is no conflict resolution.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"turquaz/internal/models"
)

// StorageKey is the fixed key the reservation sequence lives under.
const StorageKey = "turquazReservations"

// Store is a SQLite-backed key/value store holding the reservation
// sequence as a JSON array.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
	mu     sync.Mutex
}

// New opens (or creates) the store at path.
func New(path string, logger *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		store_key TEXT PRIMARY KEY,
		payload   TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	logger.Info().Str("path", path).Msg("local reservation store opened")
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append adds a reservation to the stored sequence, assigning a record ID
// and creation timestamp when absent.
func (s *Store) Append(ctx context.Context, r models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := s.readSequence(ctx, tx)
	if err != nil {
		return err
	}
	rows = append(rows, r)

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("serialize sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv (store_key, payload) VALUES (?, ?)
		 ON CONFLICT(store_key) DO UPDATE SET payload = excluded.payload`,
		StorageKey, string(payload),
	)
	if err != nil {
		return fmt.Errorf("write sequence: %w", err)
	}
	return tx.Commit()
}

// ListByDate returns the stored reservations for a date, sorted by
// TimeKey ascending.
func (s *Store) ListByDate(ctx context.Context, date string) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readSequence(ctx, nil)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Reservation, 0)
	for _, r := range rows {
		if models.NormalizeDate(r.Date) == date {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time < filtered[j].Time
	})
	return filtered, nil
}

// Occupancy derives per-slot occupied guest counts for a date from the
// stored rows.
func (s *Store) Occupancy(ctx context.Context, date string) (models.SlotOccupancy, error) {
	rows, err := s.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	occ := make(models.SlotOccupancy)
	for _, r := range rows {
		occ[r.Time] += r.Guests
	}
	return occ, nil
}

// GetAvailability satisfies the availability fetcher contract so the
// store can stand in for the remote endpoint when none is configured.
func (s *Store) GetAvailability(ctx context.Context, date string) (models.SlotOccupancy, error) {
	return s.Occupancy(ctx, date)
}

// Reserve satisfies the gateway submitter contract: accepted
// reservations are appended to the stored sequence.
func (s *Store) Reserve(ctx context.Context, r models.Reservation) error {
	return s.Append(ctx, r)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) readSequence(ctx context.Context, tx *sql.Tx) ([]models.Reservation, error) {
	var q querier = s.db
	if tx != nil {
		q = tx
	}

	var payload string
	err := q.QueryRowContext(ctx, "SELECT payload FROM kv WHERE store_key = ?", StorageKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sequence: %w", err)
	}

	var rows []models.Reservation
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		// A corrupt sequence degrades to empty rather than failing the UI.
		s.logger.Warn().Err(err).Msg("discarding unreadable local reservation sequence")
		return nil, nil
	}
	return rows, nil
}
