package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/alx-travel/alx-travel-app/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupTestRouter(t *testing.T, opts ...RouterOption) (http.Handler, *controllableClock) {
	t.Helper()

	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	store := storage.NewMemoryStorage(storage.WithClock(clock.Now))

	handler := NewHandler(store, WithClock(clock.Now))
	logger := zaptest.NewLogger(t)
	router := NewRouter(handler, logger, append([]RouterOption{WithLogging(false)}, opts...)...)

	return router, clock
}

type listingBody struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	PricePerNight string    `json:"price_per_night"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createListing(t *testing.T, router http.Handler, title, location, price string) listingBody {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/listings/", map[string]any{
		"title":           title,
		"description":     "A place to stay",
		"location":        location,
		"price_per_night": price,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created listingBody
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return created
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

type unreachableStorage struct {
	storage.Storage
}

func (unreachableStorage) Ping(context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Database  string    `json:"database"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" || body.Database != "ok" {
		t.Fatalf("expected ok/ok, got %s/%s", body.Status, body.Database)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestHealthEndpointReportsDatabaseOutage(t *testing.T) {
	handler := NewHandler(unreachableStorage{Storage: storage.NewMemoryStorage()})
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"database":"unavailable"`) {
		t.Fatalf("expected database to be reported unavailable, got %s", rec.Body.String())
	}
}

func TestDatetimesRenderedInConfiguredZone(t *testing.T) {
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	store := storage.NewMemoryStorage(storage.WithClock(clock.Now))
	nairobi := time.FixedZone("EAT", 3*60*60)
	handler := NewHandler(store, WithClock(clock.Now), WithLocation(nairobi))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec := doJSON(t, router, http.MethodPost, "/api/listings/", map[string]any{
		"title":           "Loft",
		"location":        "Nairobi",
		"price_per_night": "40",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"created_at":"2024-11-01T15:00:00+03:00"`) {
		t.Fatalf("expected created_at in +03:00, got %s", rec.Body.String())
	}
}

func TestCreateAndGetListing(t *testing.T) {
	router, clock := setupTestRouter(t)

	created := createListing(t, router, "  Beach house ", "Diani", "120.5")
	if created.ID == 0 {
		t.Fatalf("expected an id to be assigned")
	}
	if created.Title != "Beach house" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if created.PricePerNight != "120.50" {
		t.Fatalf("expected normalized price 120.50, got %s", created.PricePerNight)
	}
	if !created.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected created_at %s, got %s", clock.Now(), created.CreatedAt)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/listings/1/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got listingBody
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Location != "Diani" {
		t.Fatalf("expected Diani, got %s", got.Location)
	}
}

func TestCreateListingSetsLocationHeader(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/listings/", map[string]any{
		"title":           "Cottage",
		"location":        "Limuru",
		"price_per_night": "60",
	})
	if got := rec.Header().Get("Location"); got != "/api/listings/1/" {
		t.Fatalf("expected Location /api/listings/1/, got %q", got)
	}
}

func TestCreateListingReportsFieldErrors(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/listings/", map[string]any{
		"title":           "",
		"location":        "Kilifi",
		"price_per_night": "-3",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := body.Fields["title"]; !ok {
		t.Fatalf("expected title error, got %v", body.Fields)
	}
	if _, ok := body.Fields["price_per_night"]; !ok {
		t.Fatalf("expected price_per_night error, got %v", body.Fields)
	}
	if _, ok := body.Fields["location"]; ok {
		t.Fatalf("did not expect a location error, got %v", body.Fields)
	}
}

func TestCreateListingRejectsMalformedJSON(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/listings/", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestListListingsPaginates(t *testing.T) {
	router, _ := setupTestRouter(t)

	createListing(t, router, "One", "Mombasa", "10")
	createListing(t, router, "Two", "Mombasa", "20")
	createListing(t, router, "Three", "Mombasa", "30")

	rec := doJSON(t, router, http.MethodGet, "/api/listings/?limit=2&offset=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Total-Count"); got != "3" {
		t.Fatalf("expected X-Total-Count 3, got %q", got)
	}

	var page []listingBody
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(page))
	}
	if page[0].Title != "Two" || page[1].Title != "Three" {
		t.Fatalf("unexpected page order: %s, %s", page[0].Title, page[1].Title)
	}
}

func TestListListingsEmptyIsArray(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/listings/", nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestListListingsRejectsInvalidPagination(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, query := range []string{"limit=abc", "limit=0", "offset=-1"} {
		rec := doJSON(t, router, http.MethodGet, "/api/listings/?"+query, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", query, rec.Code)
		}
	}
}

func TestReplaceListing(t *testing.T) {
	router, clock := setupTestRouter(t)
	created := createListing(t, router, "Cabin", "Nanyuki", "50")

	clock.Advance(time.Hour)
	rec := doJSON(t, router, http.MethodPut, "/api/listings/1/", map[string]any{
		"title":           "Cabin",
		"description":     "Renovated",
		"location":        "Nanyuki",
		"price_per_night": "75",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated listingBody
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Description != "Renovated" || updated.PricePerNight != "75.00" {
		t.Fatalf("unexpected listing after update: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created_at to be preserved")
	}
	if !updated.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updated_at %s, got %s", clock.Now(), updated.UpdatedAt)
	}
}

func TestReplaceListingRequiresAllFields(t *testing.T) {
	router, _ := setupTestRouter(t)
	createListing(t, router, "Cabin", "Nanyuki", "50")

	rec := doJSON(t, router, http.MethodPut, "/api/listings/1/", map[string]any{
		"title": "Cabin",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestPatchListingKeepsOmittedFields(t *testing.T) {
	router, _ := setupTestRouter(t)
	createListing(t, router, "Cabin", "Nanyuki", "50")

	rec := doJSON(t, router, http.MethodPatch, "/api/listings/1/", map[string]any{
		"price_per_night": "65.9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated listingBody
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Title != "Cabin" || updated.Location != "Nanyuki" {
		t.Fatalf("expected untouched fields to survive, got %+v", updated)
	}
	if updated.PricePerNight != "65.90" {
		t.Fatalf("expected 65.90, got %s", updated.PricePerNight)
	}
}

func TestPatchListingRejectsNull(t *testing.T) {
	router, _ := setupTestRouter(t)
	createListing(t, router, "Cabin", "Nanyuki", "50")

	rec := doJSON(t, router, http.MethodPatch, "/api/listings/1/", map[string]any{
		"title": nil,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Fields["title"] != "this field may not be null" {
		t.Fatalf("expected null title error, got %v", body.Fields)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/listings/1/", nil)
	var current listingBody
	if err := json.NewDecoder(rec.Body).Decode(&current); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if current.Title != "Cabin" {
		t.Fatalf("expected listing to be unchanged, got %+v", current)
	}
}

func TestDeleteListing(t *testing.T) {
	router, _ := setupTestRouter(t)
	createListing(t, router, "Cabin", "Nanyuki", "50")

	rec := doJSON(t, router, http.MethodDelete, "/api/listings/1/", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/listings/1/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", rec.Code)
	}
}

func TestUnknownListingReturnsNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec := doJSON(t, router, method, "/api/listings/404/", map[string]any{})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", method, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/listings/abc/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for non-numeric id, got %d", rec.Code)
	}
}

func TestMissingTrailingSlashRedirects(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/listings", nil)
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected status 301, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/api/listings/" {
		t.Fatalf("expected redirect to /api/listings/, got %q", got)
	}
}

func TestUnsupportedMethodReturns405(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/listings/", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/listings/", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected Access-Control-Allow-Origin *, got %q", got)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}
