package models

import "time"

// RawProperty holds unprocessed scraped data directly from the browser.
// This is written to CSV before any cleaning or transformation.
type RawProperty struct {
	Kind            string
	Title           string
	Location        string
	RawPrice        string
	RawArea         string
	RawPricePerArea string
	RawRooms        string
	RawYear         string
	Description     string
	Seller          string
	URL             string
	ScrapedAt       time.Time
}

// Property is the cleaned, validated record ready for PostgreSQL storage.
// Zero means "unknown" for every numeric field; the statistics engine
// excludes non-positive values before computing anything.
type Property struct {
	ID           int64     `json:"id"`
	ExternalID   string    `json:"externalId"`
	Kind         string    `json:"kind"` // flat | house
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	Price        float64   `json:"price"`
	Area         float64   `json:"area"`
	Rooms        int       `json:"rooms"`
	PricePerArea float64   `json:"pricePerArea"`
	YearBuilt    int       `json:"yearBuilt"`
	Description  string    `json:"description,omitempty"`
	Seller       string    `json:"seller,omitempty"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Filter is a partial range update over the stored property fields. Nil
// means "no constraint". A bin selection produces one of these as its
// filter delta; the listing endpoint consumes the same shape as its query.
type Filter struct {
	Kind     string   `json:"kind,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	MinArea  *float64 `json:"minArea,omitempty"`
	MaxArea  *float64 `json:"maxArea,omitempty"`
	MinRooms *int     `json:"minRooms,omitempty"`
	MaxRooms *int     `json:"maxRooms,omitempty"`
	MinYear  *int     `json:"minYear,omitempty"`
	MaxYear  *int     `json:"maxYear,omitempty"`
}

// IsZero reports whether the filter constrains nothing.
func (f *Filter) IsZero() bool {
	return f == nil || (f.Kind == "" &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinArea == nil && f.MaxArea == nil &&
		f.MinRooms == nil && f.MaxRooms == nil &&
		f.MinYear == nil && f.MaxYear == nil)
}
