package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alx-travel/alx-travel-app/internal/listing"
)

var (
	// ErrNotFound indicates no listing exists with the requested id.
	ErrNotFound = errors.New("listing not found")
)

// Storage persists listings.
type Storage interface {
	ListListings(ctx context.Context, page listing.Page) ([]listing.Listing, int64, error)
	GetListing(ctx context.Context, id uint64) (listing.Listing, error)
	CreateListing(ctx context.Context, in listing.Input) (listing.Listing, error)
	UpdateListing(ctx context.Context, id uint64, in listing.Input) (listing.Listing, error)
	DeleteListing(ctx context.Context, id uint64) error
	Ping(ctx context.Context) error
}

// MemoryStorage keeps listings in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	listings map[uint64]listing.Listing
	nextID   uint64
	clock    func() time.Time
}

// MemoryOption configures MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithClock overrides the time source used for timestamps.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// NewMemoryStorage initialises an empty store whose ids start at 1.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{
		listings: make(map[uint64]listing.Listing),
		nextID:   1,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListListings returns a page of listings ordered by id and the total count.
func (s *MemoryStorage) ListListings(_ context.Context, page listing.Page) ([]listing.Listing, int64, error) {
	page = page.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.listings))
	for id := range s.listings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(len(ids))
	if page.Offset >= len(ids) {
		return []listing.Listing{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]listing.Listing, 0, end-page.Offset)
	for _, id := range ids[page.Offset:end] {
		out = append(out, s.listings[id])
	}
	return out, total, nil
}

// GetListing returns the listing with id.
func (s *MemoryStorage) GetListing(_ context.Context, id uint64) (listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return listing.Listing{}, ErrNotFound
	}
	return l, nil
}

// CreateListing validates and stores in under the next id.
func (s *MemoryStorage) CreateListing(_ context.Context, in listing.Input) (listing.Listing, error) {
	normalized, err := in.Validate()
	if err != nil {
		return listing.Listing{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	l := listing.Listing{
		ID:            s.nextID,
		Title:         normalized.Title,
		Description:   normalized.Description,
		Location:      normalized.Location,
		PricePerNight: normalized.PricePerNight,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.listings[l.ID] = l
	s.nextID++
	return l, nil
}

// UpdateListing replaces the writable fields of the listing with id.
func (s *MemoryStorage) UpdateListing(_ context.Context, id uint64, in listing.Input) (listing.Listing, error) {
	normalized, err := in.Validate()
	if err != nil {
		return listing.Listing{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return listing.Listing{}, ErrNotFound
	}
	l.Title = normalized.Title
	l.Description = normalized.Description
	l.Location = normalized.Location
	l.PricePerNight = normalized.PricePerNight
	l.UpdatedAt = s.clock()
	s.listings[id] = l
	return l, nil
}

// DeleteListing removes the listing with id.
func (s *MemoryStorage) DeleteListing(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStorage) Ping(context.Context) error {
	return nil
}
