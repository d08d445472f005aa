// Package gateway validates and submits reservations, re-checking slot
// capacity against the freshest occupancy snapshot before transmission.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"turquaz/internal/availability"
	"turquaz/internal/capacity"
	"turquaz/internal/events"
	"turquaz/internal/metrics"
	"turquaz/internal/models"
)

// Reason classifies why a submission was rejected.
type Reason string

const (
	ReasonIncompleteSelection Reason = "incomplete_selection"
	ReasonMissingName         Reason = "missing_name"
	ReasonInvalidGuestCount   Reason = "invalid_guest_count"
	ReasonInvalidPhone        Reason = "invalid_phone"
	ReasonSlotFull            Reason = "slot_full"
	ReasonTransport           Reason = "transport_error"
)

// MinPhoneLength is the minimum accepted phone number length.
const MinPhoneLength = 7

// DefaultFreshness is how old a cached occupancy snapshot may be before
// the capacity gate forces a refetch.
const DefaultFreshness = 30 * time.Second

// Rejection is a rejected submission. Validation rejections never reach
// the network; transport rejections wrap the underlying error.
type Rejection struct {
	Reason  Reason
	Message string
	Err     error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("reservation rejected (%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("reservation rejected (%s): %s", r.Reason, r.Message)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Submitter transmits an accepted reservation to the backing store.
type Submitter interface {
	Reserve(ctx context.Context, r models.Reservation) error
}

// Request is the raw form input for one submission attempt.
type Request struct {
	Name   string
	Phone  string
	Guests int
	Note   string
	Date   string
	Time   string
}

// Gateway submits reservations.
type Gateway struct {
	submitter Submitter
	store     *availability.Store
	bus       *events.Bus
	menus     models.Menus
	capacity  int
	freshness time.Duration
	logger    *zerolog.Logger
	now       func() time.Time
}

// New builds a gateway. bus may be nil when no subscriber cares.
func New(submitter Submitter, store *availability.Store, bus *events.Bus, menus models.Menus, slotCapacity int, freshness time.Duration, logger *zerolog.Logger) *Gateway {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Gateway{
		submitter: submitter,
		store:     store,
		bus:       bus,
		menus:     menus,
		capacity:  slotCapacity,
		freshness: freshness,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates the request, re-checks capacity against the freshest
// occupancy snapshot, and transmits. On acceptance the availability for
// the booked date is invalidated and refetched so the new occupancy is
// visible. The capacity re-check is best effort, not transactional:
// authority over true occupancy lives in the remote store.
func (g *Gateway) Submit(ctx context.Context, req Request) (models.Reservation, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Note = strings.TrimSpace(req.Note)

	if rej := g.validate(req); rej != nil {
		return models.Reservation{}, g.reject(rej)
	}

	occ := g.freshOccupancy(ctx, req.Date)
	if !capacity.CanAccept(occ.Occupied(req.Time), req.Guests, g.capacity) {
		// Capacity conflict: another party filled the slot between render
		// and submit. Refresh so the UI reflects reality.
		if _, err := g.store.Refresh(ctx, req.Date); err == nil && g.bus != nil {
			_ = g.bus.PublishJSON(events.TypeAvailabilityRefreshed, map[string]string{"date": req.Date})
		}
		return models.Reservation{}, g.reject(&Rejection{
			Reason:  ReasonSlotFull,
			Message: "Selected timeslot cannot fit this guest count. Choose another slot.",
		})
	}

	reservation := models.Reservation{
		Name:      req.Name,
		Phone:     req.Phone,
		Guests:    req.Guests,
		Note:      req.Note,
		Date:      req.Date,
		Time:      req.Time,
		Meal:      g.menus.MealForTime(req.Time),
		CreatedAt: g.now(),
	}

	if err := g.submitter.Reserve(ctx, reservation); err != nil {
		// The caller must not assume the reservation was persisted.
		return models.Reservation{}, g.reject(&Rejection{
			Reason:  ReasonTransport,
			Message: "Reservation could not be saved right now. Please try again.",
			Err:     err,
		})
	}

	metrics.IncReservationSubmitted("accepted")
	g.logger.Info().
		Str("date", reservation.Date).
		Str("time", reservation.Time).
		Int("guests", reservation.Guests).
		Msg("reservation accepted")
	if g.bus != nil {
		_ = g.bus.PublishJSON(events.TypeReservationAccepted, reservation)
	}

	if _, err := g.store.Refresh(ctx, req.Date); err != nil {
		g.logger.Warn().Err(err).Str("date", req.Date).Msg("post-submit availability refresh failed")
	} else if g.bus != nil {
		_ = g.bus.PublishJSON(events.TypeAvailabilityRefreshed, map[string]string{"date": req.Date})
	}

	return reservation, nil
}

// validate applies the field checks in fixed order: selection, name,
// guest range, phone. Fail-fast on the first violation.
func (g *Gateway) validate(req Request) *Rejection {
	if req.Date == "" || req.Time == "" {
		return &Rejection{
			Reason:  ReasonIncompleteSelection,
			Message: "Please select both a date and a timeslot.",
		}
	}
	if req.Name == "" {
		return &Rejection{
			Reason:  ReasonMissingName,
			Message: "Please enter your name.",
		}
	}
	if req.Guests < 1 || req.Guests > g.capacity {
		return &Rejection{
			Reason:  ReasonInvalidGuestCount,
			Message: fmt.Sprintf("Guests must be between 1 and %d.", g.capacity),
		}
	}
	if len(req.Phone) < MinPhoneLength {
		return &Rejection{
			Reason:  ReasonInvalidPhone,
			Message: "Please enter a valid phone number.",
		}
	}
	return nil
}

// freshOccupancy returns the occupancy snapshot for the date, refetching
// when the cached one is missing or older than the freshness window.
func (g *Gateway) freshOccupancy(ctx context.Context, date string) models.SlotOccupancy {
	age, ok := g.store.Age(date)
	if ok && age <= g.freshness {
		return g.store.Cached(date)
	}
	occ, err := g.store.Fetch(ctx, date)
	if err != nil {
		g.logger.Warn().Err(err).Str("date", date).Msg("pre-submit availability refresh degraded")
	}
	return occ
}

func (g *Gateway) reject(rej *Rejection) error {
	metrics.IncReservationSubmitted(string(rej.Reason))
	if g.bus != nil {
		_ = g.bus.PublishJSON(events.TypeReservationRejected, map[string]string{
			"reason":  string(rej.Reason),
			"message": rej.Message,
		})
	}
	return rej
}
