package services

import (
	"math"

	"optihome/models"
	"optihome/utils"
)

// Padding applied to the reconstructed price range for price-per-area bin
// selections. The widened range keeps properties whose area strays from
// the dataset average inside the result.
const (
	pricePerAreaLowerPad = 0.8
	pricePerAreaUpperPad = 1.2
)

// LocateBin returns the index of the bin containing v: the first bin with
// RangeStart <= v < RangeEnd. A value at or past the last bin's start (the
// series maximum sits there, excluded by every strict upper bound) lands
// in the last bin; anything else falls back to the first bin. Returns -1
// only for an empty histogram. Exact boundary values belong to the bin
// that starts at that value, never the preceding one.
func LocateBin(bins []models.HistogramBin, v float64) int {
	if len(bins) == 0 {
		return -1
	}
	for i, b := range bins {
		if b.RangeStart <= v && v < b.RangeEnd {
			return i
		}
	}
	if v >= bins[len(bins)-1].RangeStart {
		return len(bins) - 1
	}
	return 0
}

// PropertiesInBin returns the properties whose attr value falls in the
// selected bin. Membership follows the histogram's assignment rule: the
// half-open [RangeStart, RangeEnd), with the last bin absorbing everything
// from its start upward (the series maximum lands there), so the subset
// size always matches the bin count.
func PropertiesInBin(props []*models.Property, attr models.Attribute, bins []models.HistogramBin, idx int) []*models.Property {
	if idx < 0 || idx >= len(bins) {
		return nil
	}
	bin := bins[idx]
	last := idx == len(bins)-1

	out := make([]*models.Property, 0)
	for _, p := range props {
		if p == nil {
			continue
		}
		v := AttributeValue(p, attr)
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		if v < bin.RangeStart {
			continue
		}
		if last || v < bin.RangeEnd {
			out = append(out, p)
		}
	}
	return out
}

// BinTranslator converts a selected histogram bin into a filter delta.
type BinTranslator struct {
	logger *utils.Logger
}

// NewBinTranslator creates a BinTranslator with the given logger.
func NewBinTranslator(logger *utils.Logger) *BinTranslator {
	return &BinTranslator{logger: logger}
}

// Translate produces the filter delta for a bin selected on attr's
// histogram. Directly-stored attributes map losslessly onto their own
// filter keys. Price-per-area has no stored filterable field, so an
// approximate price range is reconstructed from the dataset-wide average
// area (over the full unfiltered list) with asymmetric padding; when that
// average is unavailable no delta is produced at all.
func (t *BinTranslator) Translate(attr models.Attribute, bin models.HistogramBin, props []*models.Property) *models.Filter {
	switch attr {
	case models.AttrPrice:
		return &models.Filter{
			MinPrice: fptr(math.Floor(bin.RangeStart)),
			MaxPrice: fptr(math.Ceil(bin.RangeEnd)),
		}
	case models.AttrArea:
		return &models.Filter{
			MinArea: fptr(math.Floor(bin.RangeStart)),
			MaxArea: fptr(math.Ceil(bin.RangeEnd)),
		}
	case models.AttrRooms:
		return &models.Filter{
			MinRooms: iptr(int(math.Floor(bin.RangeStart))),
			MaxRooms: iptr(lastIntBelow(bin.RangeEnd)),
		}
	case models.AttrYearBuilt:
		return &models.Filter{
			MinYear: iptr(int(math.Floor(bin.RangeStart))),
			MaxYear: iptr(lastIntBelow(bin.RangeEnd)),
		}
	case models.AttrPricePerArea:
		avgArea := Mean(CleanValues(props, attributeSpecs[models.AttrArea].get))
		if avgArea <= 0 {
			t.logger.Warn("[stats] pricePerArea bin selected but average area is unavailable, no filter emitted")
			return nil
		}
		return &models.Filter{
			MinPrice: fptr(math.Floor(bin.RangeStart * avgArea * pricePerAreaLowerPad)),
			MaxPrice: fptr(math.Ceil(bin.RangeEnd * avgArea * pricePerAreaUpperPad)),
		}
	default:
		t.logger.Warn("[stats] bin selected on unknown attribute %q, no filter emitted", attr)
		return nil
	}
}

// lastIntBelow returns the largest integer strictly below the exclusive
// upper bound, so a rooms bin [3,4) filters to rooms == 3.
func lastIntBelow(end float64) int {
	return int(math.Ceil(end)) - 1
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }
