package listing

import "time"

const (
	// MaxPageSize bounds the number of listings returned by a single list call.
	MaxPageSize = 100
	// MaxTextLength bounds title and location.
	MaxTextLength = 255
)

// Listing is a bookable property.
type Listing struct {
	ID            uint64
	Title         string
	Description   string
	Location      string
	PricePerNight string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Input carries the writable fields of a Listing for create and full update.
type Input struct {
	Title         string
	Description   string
	Location      string
	PricePerNight string
}

// Patch carries a partial update; nil fields are left unchanged.
type Patch struct {
	Title         *string
	Description   *string
	Location      *string
	PricePerNight *string
}

// Page selects a window of listings ordered by id.
type Page struct {
	Limit  int
	Offset int
}

// Apply merges p onto the writable fields of l.
func (p Patch) Apply(l Listing) Input {
	in := Input{
		Title:         l.Title,
		Description:   l.Description,
		Location:      l.Location,
		PricePerNight: l.PricePerNight,
	}
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Location != nil {
		in.Location = *p.Location
	}
	if p.PricePerNight != nil {
		in.PricePerNight = *p.PricePerNight
	}
	return in
}

// Normalize clamps the page to [1, MaxPageSize] and a non-negative offset.
func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
