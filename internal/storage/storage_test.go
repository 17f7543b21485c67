package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alx-travel/alx-travel-app/internal/listing"
)

func sampleInput(title string) listing.Input {
	return listing.Input{
		Title:         title,
		Description:   "Two bedrooms",
		Location:      "Nairobi",
		PricePerNight: "85.5",
	}
}

func TestMemoryStorageCreateAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStorage(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first, err := store.CreateListing(ctx, sampleInput("Loft"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.CreateListing(ctx, sampleInput("Villa"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
	if first.PricePerNight != "85.50" {
		t.Fatalf("expected normalised price, got %s", first.PricePerNight)
	}
	if !first.CreatedAt.Equal(now) || !first.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps %s, got %s/%s", now, first.CreatedAt, first.UpdatedAt)
	}
}

func TestMemoryStorageRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	if _, err := store.CreateListing(context.Background(), listing.Input{}); !errors.Is(err, listing.ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}

	listings, total, err := store.ListListings(context.Background(), listing.Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(listings) != 0 {
		t.Fatalf("expected empty store after rejected create")
	}
}

func TestMemoryStorageUpdateAndDelete(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStorage(WithClock(func() time.Time { return current }))
	ctx := context.Background()

	created, err := store.CreateListing(ctx, sampleInput("Loft"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(time.Hour)
	updated, err := store.UpdateListing(ctx, created.ID, listing.Input{
		Title:         "Loft with balcony",
		Location:      "Nairobi",
		PricePerNight: "99",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "Loft with balcony" || updated.PricePerNight != "99.00" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.Equal(current) {
		t.Fatalf("expected created_at kept and updated_at bumped, got %+v", updated)
	}

	if err := store.DeleteListing(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.GetListing(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteListing(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := store.UpdateListing(ctx, created.ID, sampleInput("Ghost")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestMemoryStorageListPagination(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.CreateListing(ctx, sampleInput(fmt.Sprintf("Listing %d", i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	page, total, err := store.ListListings(ctx, listing.Page{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, _, err := store.ListListings(ctx, listing.Page{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(empty))
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(offset int) {
			defer wg.Done()
			if _, err := store.CreateListing(ctx, sampleInput(fmt.Sprintf("Listing %d", offset))); err != nil {
				t.Errorf("CreateListing failed: %v", err)
			}
		}(i)

		go func() {
			defer wg.Done()
			if _, _, err := store.ListListings(ctx, listing.Page{}); err != nil {
				t.Errorf("ListListings failed: %v", err)
			}
		}()
	}

	wg.Wait()

	_, total, err := store.ListListings(ctx, listing.Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 32 {
		t.Fatalf("expected 32 listings, got %d", total)
	}
}
