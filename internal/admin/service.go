// Package admin is the staff-facing read-only view: credential-gated
// listing of a day's reservations with KPI aggregation.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"turquaz/internal/datewindow"
	"turquaz/internal/events"
	"turquaz/internal/metrics"
	"turquaz/internal/models"
)

var (
	// ErrBadCredentials is an authentication failure. No lockout or
	// backoff applies.
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated guards listing before a successful login.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// RemoteAPI is the subset of the endpoint client the admin panel uses.
type RemoteAPI interface {
	Configured() bool
	AdminLogin(ctx context.Context, username, password string) (bool, error)
	AdminList(ctx context.Context, username, password, date string) ([]models.Reservation, error)
}

// LocalLister reads the fallback store when no endpoint is configured.
type LocalLister interface {
	ListByDate(ctx context.Context, date string) ([]models.Reservation, error)
}

// Credentials is a staff username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Summary is the KPI view derived from one day's rows. It is recomputed
// on every load and never persisted.
type Summary struct {
	Reservations int
	Guests       int
	Breakfast    int
	Lunch        int
	Dinner       int
}

// Service holds one staff session.
//
// Credentials are kept in memory for the session and resent with every
// listing request; the endpoint issues no token. That is a documented
// weakness of the backing API, not a pattern to copy.
type Service struct {
	remote   RemoteAPI
	local    LocalLister
	fallback Credentials
	window   datewindow.Bounds
	bus      *events.Bus
	logger   *zerolog.Logger

	mu       sync.Mutex
	auth     Credentials
	loggedIn bool
}

// NewService builds an admin session service. local and bus may be nil.
func NewService(remote RemoteAPI, local LocalLister, fallback Credentials, window datewindow.Bounds, bus *events.Bus, logger *zerolog.Logger) *Service {
	return &Service{
		remote:   remote,
		local:    local,
		fallback: fallback,
		window:   window,
		bus:      bus,
		logger:   logger,
	}
}

// Login verifies the credentials against the endpoint, or against the
// local fallback pair when no endpoint is configured.
func (s *Service) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return s.loginFailed(username, ErrBadCredentials)
	}

	if s.remote != nil && s.remote.Configured() {
		ok, err := s.remote.AdminLogin(ctx, username, password)
		if err != nil {
			metrics.IncAdminLogin("error")
			return fmt.Errorf("verify credentials: %w", err)
		}
		if !ok {
			return s.loginFailed(username, ErrBadCredentials)
		}
	} else if username != s.fallback.Username || password != s.fallback.Password {
		return s.loginFailed(username, ErrBadCredentials)
	}

	s.mu.Lock()
	s.auth = Credentials{Username: username, Password: password}
	s.loggedIn = true
	s.mu.Unlock()

	metrics.IncAdminLogin("ok")
	s.logger.Info().Str("username", username).Msg("admin login")
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeAdminLogin, map[string]string{"username": username, "result": "ok"})
	}
	return nil
}

func (s *Service) loginFailed(username string, err error) error {
	metrics.IncAdminLogin("denied")
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeAdminLogin, map[string]string{"username": username, "result": "denied"})
	}
	return err
}

// LoggedIn reports whether a login succeeded this session.
func (s *Service) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Window returns the staff browsing window.
func (s *Service) Window() datewindow.Bounds {
	return s.window
}

// Shift moves a browsing date by deltaDays, rejecting moves that leave
// the window.
func (s *Service) Shift(date string, deltaDays int) (string, bool) {
	return datewindow.Shift(date, deltaDays, s.window)
}

// List returns the reservations for a date sorted by TimeKey ascending,
// along with the derived KPI summary. The browsing date is clamped into
// the admin window.
func (s *Service) List(ctx context.Context, date string) ([]models.Reservation, Summary, error) {
	s.mu.Lock()
	auth, loggedIn := s.auth, s.loggedIn
	s.mu.Unlock()
	if !loggedIn {
		return nil, Summary{}, ErrNotAuthenticated
	}

	date = datewindow.Clamp(date, s.window)

	var rows []models.Reservation
	var err error
	if s.remote != nil && s.remote.Configured() {
		rows, err = s.remote.AdminList(ctx, auth.Username, auth.Password, date)
	} else if s.local != nil {
		rows, err = s.local.ListByDate(ctx, date)
	}
	if err != nil {
		return nil, Summary{}, fmt.Errorf("list reservations for %s: %w", date, err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Time < rows[j].Time
	})
	return rows, Summarize(rows), nil
}

// Summarize derives the KPI aggregates from listed rows: total guest
// count and a per-meal reservation breakdown.
func Summarize(rows []models.Reservation) Summary {
	summary := Summary{Reservations: len(rows)}
	for _, row := range rows {
		summary.Guests += row.Guests
		switch row.Meal {
		case models.MealBreakfast:
			summary.Breakfast++
		case models.MealLunch:
			summary.Lunch++
		default:
			summary.Dinner++
		}
	}
	return summary
}
