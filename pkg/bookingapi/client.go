package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/logger"
)

// Cache stores raw GET response bodies.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Client represents a booking API client
type Client struct {
	config     Config
	httpClient *http.Client
	cache      Cache
}

// Option customises a Client.
type Option func(*Client)

// WithCache enables GET response caching.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new booking API client with the given configuration
func NewClient(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// ListCars returns the whole fleet.
func (c *Client) ListCars(ctx context.Context) ([]model.Car, error) {
	var cars []model.Car
	if err := c.get(ctx, "/cars/", nil, true, &cars); err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	return nonNil(cars), nil
}

// PopularCars returns up to limit featured cars.
func (c *Client) PopularCars(ctx context.Context, limit int) ([]model.Car, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var cars []model.Car
	if err := c.get(ctx, "/cars/popular", q, true, &cars); err != nil {
		return nil, fmt.Errorf("failed to list popular cars: %w", err)
	}
	return nonNil(cars), nil
}

// GetCar fetches one car. Detail reads always bypass the cache so prices are
// current when a visitor books. A missing car yields ErrNotFound.
func (c *Client) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	var car model.Car
	if err := c.get(ctx, "/cars/"+strconv.FormatInt(id, 10), nil, false, &car); err != nil {
		return nil, fmt.Errorf("failed to get car %d: %w", id, err)
	}
	return &car, nil
}

// CarServices lists the add-on services eligible for a car.
func (c *Client) CarServices(ctx context.Context, carID int64) ([]model.AdditionalService, error) {
	var services []model.AdditionalService
	path := "/cars/" + strconv.FormatInt(carID, 10) + "/services"
	if err := c.get(ctx, path, nil, true, &services); err != nil {
		return nil, fmt.Errorf("failed to get services for car %d: %w", carID, err)
	}
	return nonNil(services), nil
}

// ActiveServices lists every active add-on service.
func (c *Client) ActiveServices(ctx context.Context) ([]model.AdditionalService, error) {
	var services []model.AdditionalService
	if err := c.get(ctx, "/additional-services/active", nil, true, &services); err != nil {
		return nil, fmt.Errorf("failed to get active services: %w", err)
	}
	return nonNil(services), nil
}

// UnavailableDates returns the booked dates of a car for month (YYYY-MM,
// empty for the current month), optionally including the following month.
func (c *Client) UnavailableDates(ctx context.Context, carID int64, month string, includeNextMonth bool) ([]string, error) {
	q := url.Values{}
	q.Set("car_id", strconv.FormatInt(carID, 10))
	if month != "" {
		q.Set("month", month)
	}
	if includeNextMonth {
		q.Set("include_next_month", "true")
	}
	var resp unavailableDatesResponse
	if err := c.get(ctx, "/booking/unavailable-dates", q, false, &resp); err != nil {
		return nil, fmt.Errorf("failed to get unavailable dates for car %d: %w", carID, err)
	}
	return nonNil(resp.UnavailableDates), nil
}

// VerifyQRCode asks the API whether a promotional code is valid.
func (c *Client) VerifyQRCode(ctx context.Context, code string) (*model.QRVerification, error) {
	var result model.QRVerification
	if err := c.get(ctx, "/qr/"+url.PathEscape(code), nil, false, &result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &model.QRVerification{Status: model.QRStatusError, Message: "Неверный QR код"}, nil
		}
		return nil, fmt.Errorf("failed to verify qr code: %w", err)
	}
	return &result, nil
}

// SubmitCart creates a multi-item booking and returns the contact link.
func (c *Client) SubmitCart(ctx context.Context, req CartBookingRequest) (*model.BookingResult, error) {
	var result model.BookingResult
	if err := c.do(ctx, http.MethodPost, "/booking/cart", nil, req, &result); err != nil {
		return nil, fmt.Errorf("failed to submit cart booking: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, cacheable bool, out interface{}) error {
	useCache := cacheable && c.cache != nil && c.config.CacheTTL > 0
	key := cacheKey(path, query)

	if useCache {
		if body, ok := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(body, out); err == nil {
				logger.Debug("Booking API cache hit", logger.Fields{"key": key})
				return nil
			}
		}
	}

	body, err := c.request(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if useCache {
		c.cache.Set(ctx, key, body, c.config.CacheTTL)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}
	body, err := c.request(ctx, method, path, query, reqBody)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// request performs an HTTP request to the booking API
func (c *Client) request(ctx context.Context, method, path string, query url.Values, reqBody []byte) ([]byte, error) {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request to %s aborted: %w", path, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request to %s aborted: %w", path, ctxErr)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNetworkError, err)
	}

	logger.Debug("Booking API call", logger.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}
	return body, nil
}

// errorDetail extracts a human-readable message from an error body.
func errorDetail(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch d := errResp.Detail.(type) {
	case string:
		return d
	case nil:
		return errResp.Message
	default:
		// validation errors arrive as a list of objects
		raw, _ := json.Marshal(d)
		return string(raw)
	}
}

func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return "bookingapi:" + path
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("bookingapi:")
	b.WriteString(path)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(query[k], ","))
	}
	return b.String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
