package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/alx-travel/alx-travel-app/internal/listing"
	"github.com/alx-travel/alx-travel-app/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

// Handler wires storage into the listing HTTP handlers.
type Handler struct {
	storage storage.Storage

	clock    func() time.Time
	location *time.Location
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLocation sets the time zone datetimes are rendered in.
func WithLocation(loc *time.Location) HandlerOption {
	return func(h *Handler) {
		if loc != nil {
			h.location = loc
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Database:  "ok",
		Timestamp: h.clock().In(h.location),
	}
	status := http.StatusOK
	if err := h.storage.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleListListings(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	listings, total, err := h.storage.ListListings(r.Context(), page)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, h.toResponse(l))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeListingRequest(w, r)
	if !ok {
		return
	}

	created, err := h.storage.CreateListing(r.Context(), req.input())
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	w.Header().Set("Location", "/api/listings/"+strconv.FormatUint(created.ID, 10)+"/")
	writeJSON(w, http.StatusCreated, h.toResponse(created))
}

func (h *Handler) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}

	l, err := h.storage.GetListing(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(l))
}

func (h *Handler) handleReplaceListing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	req, ok := decodeListingRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.storage.UpdateListing(r.Context(), id, req.input())
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(updated))
}

func (h *Handler) handlePatchListing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	req, ok := decodeListingRequest(w, r)
	if !ok {
		return
	}

	current, err := h.storage.GetListing(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}

	updated, err := h.storage.UpdateListing(r.Context(), id, req.patch().Apply(current))
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(updated))
}

func (h *Handler) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteListing(r.Context(), id); err != nil {
		h.writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStorageError(w http.ResponseWriter, err error) {
	var verr *listing.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "Invalid listing",
			Fields: verr.Fields,
		})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func (h *Handler) toResponse(l listing.Listing) listingResponse {
	return listingResponse{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		Location:      l.Location,
		PricePerNight: l.PricePerNight,
		CreatedAt:     l.CreatedAt.In(h.location),
		UpdatedAt:     l.UpdatedAt.In(h.location),
	}
}

func listingID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusNotFound, "Not found", "listing not found")
		return 0, false
	}
	return id, true
}

func decodeListingRequest(w http.ResponseWriter, r *http.Request) (listingRequest, bool) {
	var req listingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return listingRequest{}, false
	}
	if fields := req.nullFields(); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "Invalid listing",
			Fields: fields,
		})
		return listingRequest{}, false
	}
	return req, true
}

func parsePage(r *http.Request) (listing.Page, error) {
	var page listing.Page
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return listing.Page{}, errors.New("limit must be a positive integer")
		}
		page.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return listing.Page{}, errors.New("offset must be a non-negative integer")
		}
		page.Offset = offset
	}
	return page.Normalize(), nil
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// optionalString records whether a JSON field was present and whether it was null.
type optionalString struct {
	Set   bool
	Null  bool
	Value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o optionalString) ptr() *string {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

type listingRequest struct {
	Title         optionalString `json:"title"`
	Description   optionalString `json:"description"`
	Location      optionalString `json:"location"`
	PricePerNight optionalString `json:"price_per_night"`
}

// nullFields names every field sent as an explicit null. None of the listing
// fields accept null.
func (r listingRequest) nullFields() map[string]string {
	fields := make(map[string]string)
	for name, v := range map[string]optionalString{
		"title":           r.Title,
		"description":     r.Description,
		"location":        r.Location,
		"price_per_night": r.PricePerNight,
	} {
		if v.Null {
			fields[name] = "this field may not be null"
		}
	}
	return fields
}

func (r listingRequest) input() listing.Input {
	return listing.Input{
		Title:         r.Title.Value,
		Description:   r.Description.Value,
		Location:      r.Location.Value,
		PricePerNight: r.PricePerNight.Value,
	}
}

func (r listingRequest) patch() listing.Patch {
	return listing.Patch{
		Title:         r.Title.ptr(),
		Description:   r.Description.ptr(),
		Location:      r.Location.ptr(),
		PricePerNight: r.PricePerNight.ptr(),
	}
}

type listingResponse struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	PricePerNight string    `json:"price_per_night"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
