package sheetsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turquaz/internal/models"
)

func TestGetAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "availability", r.URL.Query().Get("action"))
		assert.Equal(t, "2024-06-10", r.URL.Query().Get("date"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"slots": map[string]int{"19:00": 8, "8:30": 2},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	occ, err := client.GetAvailability(context.Background(), "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, 8, occ.Occupied("19:00"))
	// Slot keys are normalized to zero-padded HH:MM.
	assert.Equal(t, 2, occ.Occupied("08:30"))
}

func TestGetAvailabilityTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetAvailability(context.Background(), "2024-06-10")
	assert.Error(t, err)
}

func TestGetAvailabilityRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(map[string]any{"slots": map[string]int{"12:00": 4}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	occ, err := client.GetAvailability(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, 4, occ.Occupied("12:00"))

	occ, err = client.GetAvailability(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, 4, occ.Occupied("12:00"))
	assert.Equal(t, 1, hits, "second read should be served from cache")

	client.InvalidateAvailability(ctx, "2024-06-10")
	_, err = client.GetAvailability(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, 2, hits, "invalidation should force a refetch")
}

func TestReserve(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "text/plain;charset=utf-8", r.Header.Get("Content-Type"))

			var req reserveRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "reserve", req.Action)
			assert.Equal(t, "Ada", req.Payload.Name)

			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		err := client.Reserve(context.Background(), models.Reservation{Name: "Ada", Date: "2024-06-10", Time: "19:00", Guests: 2})
		assert.NoError(t, err)
	})

	t.Run("Declined", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": false})
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		err := client.Reserve(context.Background(), models.Reservation{Name: "Ada"})
		assert.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		client := NewClient("")
		err := client.Reserve(context.Background(), models.Reservation{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestAdminLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req adminAuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "adminLogin", req.Action)
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": req.Username == "staff" && req.Password == "secret"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ok, err := client.AdminLogin(context.Background(), "staff", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AdminLogin(context.Background(), "staff", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminList(t *testing.T) {
	t.Run("NormalizesRows", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req adminAuthRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "adminList", req.Action)
			assert.Equal(t, "2024-06-10", req.Date)

			_, _ = w.Write([]byte(`{
				"ok": true,
				"rows": [
					{"name":"Grace","phone":"5551234","guests":"3","date":"2024-06-10T00:00:00Z","time":"9:00","meal":"breakfast"},
					{"name":"Alan","phone":"5559876","guests":2,"date":"2024-06-10","time":"19:30"}
				]
			}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		rows, err := client.AdminList(context.Background(), "staff", "secret", "2024-06-10")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "2024-06-10", rows[0].Date)
		assert.Equal(t, "09:00", rows[0].Time)
		assert.Equal(t, 3, rows[0].Guests)

		// Missing meal defaults to dinner, as in the submission payload rule.
		assert.Equal(t, models.MealDinner, rows[1].Meal)
	})

	t.Run("DeclinedWithReason", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "bad credentials"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		_, err := client.AdminList(context.Background(), "staff", "wrong", "2024-06-10")
		assert.ErrorIs(t, err, ErrDeclined)
		assert.Contains(t, err.Error(), "bad credentials")
	})
}
