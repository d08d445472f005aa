package availability

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turquaz/internal/models"
)

type funcFetcher struct {
	fn          func(ctx context.Context, date string) (models.SlotOccupancy, error)
	mu          sync.Mutex
	invalidated []string
}

func (f *funcFetcher) GetAvailability(ctx context.Context, date string) (models.SlotOccupancy, error) {
	return f.fn(ctx, date)
}

func (f *funcFetcher) InvalidateAvailability(_ context.Context, date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, date)
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func TestStoreFetchAndCache(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, _ string) (models.SlotOccupancy, error) {
		return models.SlotOccupancy{"19:00": 6}, nil
	}}
	store := NewStore(fetcher, testLogger())
	ctx := context.Background()

	occ, err := store.Fetch(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, 6, occ.Occupied("19:00"))
	assert.Equal(t, 6, store.Cached("2024-06-10").Occupied("19:00"))

	t.Run("UnknownDateIsEmpty", func(t *testing.T) {
		assert.Equal(t, 0, store.Cached("2024-06-11").Occupied("19:00"))
	})
}

func TestStoreFetchFailure(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, _ string) (models.SlotOccupancy, error) {
		return nil, errors.New("endpoint unreachable")
	}}
	store := NewStore(fetcher, testLogger())

	occ, err := store.Fetch(context.Background(), "2024-06-10")
	assert.ErrorIs(t, err, ErrUnavailable)
	// All slots degrade to zero-occupied; the failure is recoverable.
	assert.Equal(t, 0, occ.Occupied("19:00"))
	assert.Equal(t, 0, store.Cached("2024-06-10").Occupied("19:00"))
}

func TestStoreRefetchReplacesWholesale(t *testing.T) {
	calls := 0
	fetcher := &funcFetcher{fn: func(_ context.Context, _ string) (models.SlotOccupancy, error) {
		calls++
		if calls == 1 {
			return models.SlotOccupancy{"18:00": 4, "19:00": 6}, nil
		}
		return models.SlotOccupancy{"19:00": 8}, nil
	}}
	store := NewStore(fetcher, testLogger())
	ctx := context.Background()

	_, err := store.Fetch(ctx, "2024-06-10")
	require.NoError(t, err)
	_, err = store.Fetch(ctx, "2024-06-10")
	require.NoError(t, err)

	cached := store.Cached("2024-06-10")
	assert.Equal(t, 8, cached.Occupied("19:00"))
	// No merge: the prior snapshot's extra slot is gone.
	assert.Equal(t, 0, cached.Occupied("18:00"))
}

func TestStoreDiscardsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	firstIssued := make(chan struct{})
	call := 0
	var mu sync.Mutex

	fetcher := &funcFetcher{fn: func(_ context.Context, _ string) (models.SlotOccupancy, error) {
		mu.Lock()
		call++
		current := call
		mu.Unlock()
		if current == 1 {
			close(firstIssued)
			<-release
			return models.SlotOccupancy{"19:00": 1}, nil
		}
		return models.SlotOccupancy{"19:00": 9}, nil
	}}
	store := NewStore(fetcher, testLogger())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := store.Fetch(ctx, "2024-06-10")
		done <- err
	}()

	<-firstIssued
	_, err := store.Fetch(ctx, "2024-06-10")
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, 9, store.Cached("2024-06-10").Occupied("19:00"),
		"slow early response must not overwrite the newer snapshot")
}

func TestStoreInvalidate(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, _ string) (models.SlotOccupancy, error) {
		return models.SlotOccupancy{"12:00": 3}, nil
	}}
	store := NewStore(fetcher, testLogger())
	ctx := context.Background()

	_, err := store.Fetch(ctx, "2024-06-10")
	require.NoError(t, err)

	store.Invalidate(ctx, "2024-06-10")
	assert.Equal(t, 0, store.Cached("2024-06-10").Occupied("12:00"))
	assert.Equal(t, []string{"2024-06-10"}, fetcher.invalidated,
		"the fetcher cache layer must be flushed too")

	_, hasAge := store.Age("2024-06-10")
	assert.False(t, hasAge)
}

func TestStoreAge(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, _ string) (models.SlotOccupancy, error) {
		return models.SlotOccupancy{}, nil
	}}
	store := NewStore(fetcher, testLogger())

	current := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	_, err := store.Fetch(context.Background(), "2024-06-10")
	require.NoError(t, err)

	current = current.Add(45 * time.Second)
	age, ok := store.Age("2024-06-10")
	assert.True(t, ok)
	assert.Equal(t, 45*time.Second, age)
}
