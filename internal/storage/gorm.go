package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/alx-travel/alx-travel-app/internal/listing"
)

// Ensure GormStorage implements Storage
var _ Storage = (*GormStorage)(nil)

type listingRecord struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Title         string    `gorm:"column:title;size:255;not null"`
	Description   string    `gorm:"column:description;type:text;not null"`
	Location      string    `gorm:"column:location;size:255;not null"`
	PricePerNight string    `gorm:"column:price_per_night;type:decimal(10,2);not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (listingRecord) TableName() string {
	return "listings"
}

func (r listingRecord) toListing() listing.Listing {
	return listing.Listing{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Location:      r.Location,
		PricePerNight: r.PricePerNight,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

// GormStorage implements Storage on MySQL using GORM
type GormStorage struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewGormStorage creates a new GormStorage
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{
		db: db,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *GormStorage) ListListings(ctx context.Context, page listing.Page) ([]listing.Listing, int64, error) {
	page = page.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&listingRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	var records []listingRecord
	err := s.db.WithContext(ctx).
		Order("id").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}

	out := make([]listing.Listing, 0, len(records))
	for _, r := range records {
		out = append(out, r.toListing())
	}
	return out, total, nil
}

func (s *GormStorage) GetListing(ctx context.Context, id uint64) (listing.Listing, error) {
	var record listingRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return listing.Listing{}, ErrNotFound
		}
		return listing.Listing{}, fmt.Errorf("get listing %d: %w", id, err)
	}
	return record.toListing(), nil
}

func (s *GormStorage) CreateListing(ctx context.Context, in listing.Input) (listing.Listing, error) {
	normalized, err := in.Validate()
	if err != nil {
		return listing.Listing{}, err
	}

	now := s.clock()
	record := listingRecord{
		Title:         normalized.Title,
		Description:   normalized.Description,
		Location:      normalized.Location,
		PricePerNight: normalized.PricePerNight,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return listing.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	return record.toListing(), nil
}

// UpdateListing relies on clientFoundRows so that an unchanged row still counts as matched.
func (s *GormStorage) UpdateListing(ctx context.Context, id uint64, in listing.Input) (listing.Listing, error) {
	normalized, err := in.Validate()
	if err != nil {
		return listing.Listing{}, err
	}

	res := s.db.WithContext(ctx).
		Model(&listingRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":           normalized.Title,
			"description":     normalized.Description,
			"location":        normalized.Location,
			"price_per_night": normalized.PricePerNight,
			"updated_at":      s.clock(),
		})
	if res.Error != nil {
		return listing.Listing{}, fmt.Errorf("update listing %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return listing.Listing{}, ErrNotFound
	}
	return s.GetListing(ctx, id)
}

func (s *GormStorage) DeleteListing(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&listingRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete listing %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping verifies database connectivity
func (s *GormStorage) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}
