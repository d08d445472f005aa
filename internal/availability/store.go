// Package availability caches per-date slot occupancy snapshots fetched
// from the remote store.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"turquaz/internal/metrics"
	"turquaz/internal/models"
)

var (
	// ErrUnavailable signals that live occupancy could not be loaded and
	// the returned snapshot treats every slot as zero-occupied. The
	// condition is recoverable: the caller surfaces a message and carries
	// on with the empty snapshot.
	ErrUnavailable = errors.New("unable to load live availability")

	// ErrSuperseded signals that a newer fetch for the same date was
	// issued while this one was in flight; the response was discarded.
	ErrSuperseded = errors.New("availability response superseded")
)

// Fetcher loads occupancy for a date from the remote store.
type Fetcher interface {
	GetAvailability(ctx context.Context, date string) (models.SlotOccupancy, error)
}

// CacheInvalidator is implemented by fetchers that keep their own cache
// layer in front of the remote store.
type CacheInvalidator interface {
	InvalidateAvailability(ctx context.Context, date string)
}

type snapshot struct {
	occ       models.SlotOccupancy
	fetchedAt time.Time
}

// Store holds the last fetched occupancy snapshot per date. Snapshots are
// replaced wholesale on refetch, never merged, and carry no TTL: callers
// explicitly invalidate after a mutation.
type Store struct {
	fetcher Fetcher
	logger  *zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	snapshots map[string]snapshot
	issued    map[string]uint64
	seq       uint64
}

// NewStore constructs an empty store backed by the fetcher.
func NewStore(fetcher Fetcher, logger *zerolog.Logger) *Store {
	return &Store{
		fetcher:   fetcher,
		logger:    logger,
		now:       time.Now,
		snapshots: make(map[string]snapshot),
		issued:    make(map[string]uint64),
	}
}

// Fetch loads occupancy for the date and commits it as the date's
// snapshot. Each fetch is tagged with a monotonic sequence number; a
// response that resolves after a newer fetch for the same date was issued
// is discarded so a slow early response cannot overwrite newer data.
//
// On transport failure an empty snapshot is committed and ErrUnavailable
// returned alongside it.
func (s *Store) Fetch(ctx context.Context, date string) (models.SlotOccupancy, error) {
	s.mu.Lock()
	s.seq++
	tag := s.seq
	s.issued[date] = tag
	s.mu.Unlock()

	occ, err := s.fetcher.GetAvailability(ctx, date)
	if err != nil {
		metrics.IncAvailabilityFetch("error")
		s.logger.Warn().Err(err).Str("date", date).Msg("availability fetch failed, treating slots as empty")
		occ = models.SlotOccupancy{}
	} else {
		metrics.IncAvailabilityFetch("ok")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issued[date] != tag {
		return occ, ErrSuperseded
	}
	s.snapshots[date] = snapshot{occ: occ, fetchedAt: s.now()}

	if err != nil {
		return occ, fmt.Errorf("%w: %s", ErrUnavailable, date)
	}
	return occ, nil
}

// Cached returns the last committed snapshot for the date, or an empty
// occupancy map when none exists.
func (s *Store) Cached(date string) models.SlotOccupancy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snapshots[date]; ok {
		return snap.occ
	}
	return models.SlotOccupancy{}
}

// Age reports how long ago the date's snapshot was committed. ok is false
// when no snapshot exists.
func (s *Store) Age(date string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[date]
	if !ok {
		return 0, false
	}
	return s.now().Sub(snap.fetchedAt), true
}

// Invalidate drops the date's snapshot, forcing the next Fetch to hit the
// remote store. Any cache layer inside the fetcher is flushed too.
func (s *Store) Invalidate(ctx context.Context, date string) {
	s.mu.Lock()
	delete(s.snapshots, date)
	s.mu.Unlock()

	if inv, ok := s.fetcher.(CacheInvalidator); ok {
		inv.InvalidateAvailability(ctx, date)
	}
}

// Refresh invalidates and refetches in one step. Used after an accepted
// reservation so the booked slot reflects its new occupancy.
func (s *Store) Refresh(ctx context.Context, date string) (models.SlotOccupancy, error) {
	s.Invalidate(ctx, date)
	return s.Fetch(ctx, date)
}
