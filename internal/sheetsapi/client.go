// Package sheetsapi talks to the spreadsheet-backed Apps Script endpoint.
// The endpoint is an opaque collaborator: a single URL answering
// action-tagged JSON requests.
package sheetsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"turquaz/internal/models"
)

var (
	// ErrNotConfigured is returned when no endpoint URL is set.
	ErrNotConfigured = errors.New("reservation API is not configured")
	// ErrDeclined is returned when the endpoint answers ok=false.
	ErrDeclined = errors.New("request declined by reservation API")
)

// Apps Script deployments are quota-limited; keep a polite request rate.
const (
	defaultRequestsPerSec = 5
	defaultBurst          = 5
)

// Client is an HTTP client for the reservation endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client. An empty baseURL produces a client whose
// calls fail with ErrNotConfigured, which callers use to switch to the
// local fallback store.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSec), defaultBurst),
	}
}

// Configured reports whether an endpoint URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// UseRedisCache configures optional Redis caching for availability reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type availabilityResponse struct {
	Slots map[string]int `json:"slots"`
}

// GetAvailability fetches the per-slot occupied guest counts for a date
// (YYYY-MM-DD). Reachable as a GET with query parameters in the
// reservation flow.
func (c *Client) GetAvailability(ctx context.Context, date string) (models.SlotOccupancy, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	cacheKey := fmt.Sprintf("availability:%s", date)
	var resp availabilityResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return normalizeSlots(resp.Slots), nil
	}

	endpoint := fmt.Sprintf("%s?action=availability&date=%s", c.baseURL, url.QueryEscape(date))
	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return normalizeSlots(resp.Slots), nil
}

// InvalidateAvailability drops any cached availability snapshot for the
// date so the next read hits the endpoint.
func (c *Client) InvalidateAvailability(ctx context.Context, date string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, fmt.Sprintf("availability:%s", date)).Err()
}

type reserveRequest struct {
	Action  string             `json:"action"`
	Payload models.Reservation `json:"payload"`
}

type okResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Reserve submits a reservation. A non-acknowledging response yields
// ErrDeclined; the caller must not assume the booking was persisted.
func (c *Client) Reserve(ctx context.Context, r models.Reservation) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var resp okResponse
	if err := c.doPost(ctx, reserveRequest{Action: "reserve", Payload: r}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return ErrDeclined
	}
	return nil
}

type adminAuthRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Password string `json:"password"`
	Date     string `json:"date,omitempty"`
}

// AdminLogin verifies staff credentials against the endpoint.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (bool, error) {
	if !c.Configured() {
		return false, ErrNotConfigured
	}

	var resp okResponse
	err := c.doPost(ctx, adminAuthRequest{Action: "adminLogin", Username: username, Password: password}, &resp)
	if err != nil {
		return false, err
	}
	return resp.OK, nil
}

// flexInt decodes counts that spreadsheets hand back as numbers, floats
// or quoted strings. Unreadable values degrade to zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(v)
		return nil
	}
	*f = 0
	return nil
}

// wireRow tolerates the loose typing of spreadsheet rows: numbers may
// arrive as strings and timestamps in assorted shapes.
type wireRow struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Guests    flexInt `json:"guests"`
	Note      string  `json:"note"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Meal      string  `json:"meal"`
	CreatedAt string  `json:"createdAt"`
}

type adminListResponse struct {
	OK    bool      `json:"ok"`
	Rows  []wireRow `json:"rows"`
	Error string    `json:"error,omitempty"`
}

// AdminList fetches the reservations for a date. Credentials are resent
// with every listing request; the endpoint issues no session token.
func (c *Client) AdminList(ctx context.Context, username, password, date string) ([]models.Reservation, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var resp adminListResponse
	err := c.doPost(ctx, adminAuthRequest{Action: "adminList", Username: username, Password: password, Date: date}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, resp.Error)
		}
		return nil, ErrDeclined
	}

	rows := make([]models.Reservation, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		rows = append(rows, row.toReservation())
	}
	return rows, nil
}

func (r wireRow) toReservation() models.Reservation {
	var createdAt time.Time
	if r.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			createdAt = parsed
		}
	}

	meal := models.Meal(r.Meal)
	if meal == "" {
		meal = models.MealDinner
	}

	return models.Reservation{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		Guests:    int(r.Guests),
		Note:      r.Note,
		Date:      models.NormalizeDate(r.Date),
		Time:      models.NormalizeTime(r.Time),
		Meal:      meal,
		CreatedAt: createdAt,
	}
}

func normalizeSlots(raw map[string]int) models.SlotOccupancy {
	occ := make(models.SlotOccupancy, len(raw))
	for timeKey, guests := range raw {
		if guests < 0 {
			guests = 0
		}
		occ[models.NormalizeTime(timeKey)] = guests
	}
	return occ
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func (c *Client) doPost(ctx context.Context, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	// Apps Script web apps only accept simple CORS requests.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}
