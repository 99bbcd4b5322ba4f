package models

// Attribute identifies one of the numeric property attributes the
// statistics engine tracks.
type Attribute string

const (
	AttrPrice        Attribute = "price"
	AttrArea         Attribute = "area"
	AttrRooms        Attribute = "rooms"
	AttrYearBuilt    Attribute = "yearBuilt"
	AttrPricePerArea Attribute = "pricePerArea"
)

// TrackedAttributes returns the attributes the engine computes stats for,
// in stable rendering order.
func TrackedAttributes() []Attribute {
	return []Attribute{AttrPrice, AttrArea, AttrRooms, AttrYearBuilt, AttrPricePerArea}
}

// Valid reports whether a is one of the tracked attributes.
func (a Attribute) Valid() bool {
	for _, t := range TrackedAttributes() {
		if a == t {
			return true
		}
	}
	return false
}

// HistogramBin is a half-open interval [RangeStart, RangeEnd) with an
// observation count. Bins are contiguous and ordered ascending; the last
// bin also absorbs observations equal to the series maximum. Label is for
// display only, all range logic works on the numeric bounds.
type HistogramBin struct {
	Label      string  `json:"label"`
	RangeStart float64 `json:"rangeStart"`
	RangeEnd   float64 `json:"rangeEnd"`
	Count      int     `json:"count"`
}

// ParameterStats is the per-attribute statistics result. Mean and Median
// are computed over the same cleaned series as the histogram. An empty
// series yields the zero value with a nil histogram.
type ParameterStats struct {
	Mean      float64        `json:"mean"`
	Median    float64        `json:"median"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Histogram []HistogramBin `json:"histogram"`
}

// PropertyStats maps each tracked attribute to its statistics.
type PropertyStats map[Attribute]ParameterStats
