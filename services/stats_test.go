package services

import (
	"math"
	"strings"
	"testing"

	"optihome/models"
	"optihome/utils"
)

func testLogger() *utils.Logger { return utils.NewLogger(false) }

func propsWithPrices(prices ...float64) []*models.Property {
	props := make([]*models.Property, len(prices))
	for i, p := range prices {
		props[i] = &models.Property{ExternalID: "x", Price: p, Area: 50, Rooms: 2}
	}
	return props
}

func priceOf(p *models.Property) float64 { return p.Price }

func TestCleanValuesRejectsInvalid(t *testing.T) {
	props := []*models.Property{
		{Price: 100},
		{Price: 0},
		{Price: -5},
		{Price: math.NaN()},
		{Price: math.Inf(1)},
		nil,
		{Price: 250},
	}

	got := CleanValues(props, priceOf)
	want := []float64{100, 250}
	if len(got) != len(want) {
		t.Fatalf("CleanValues: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CleanValues[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMeanExcludesZero(t *testing.T) {
	values := CleanValues(propsWithPrices(0, 100, 200), priceOf)
	if got := Mean(values); got != 150 {
		t.Errorf("Mean: got %v, want 150", got)
	}
}

func TestMedianOddAndEven(t *testing.T) {
	if got := Median([]float64{100, 200, 300}); got != 200 {
		t.Errorf("Median odd: got %v, want 200", got)
	}
	if got := Median([]float64{100, 200, 300, 400}); got != 250 {
		t.Errorf("Median even: got %v, want 250", got)
	}
}

func TestMeanMedianEmptySeries(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil): got %v, want 0", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil): got %v, want 0", got)
	}
}

func TestHistogramEmptySeries(t *testing.T) {
	bins, min, max := BuildHistogram(nil, 15, false, false)
	if bins != nil {
		t.Errorf("expected nil bins for empty series, got %v", bins)
	}
	if min != 0 || max != 0 {
		t.Errorf("expected min=max=0 for empty series, got %v/%v", min, max)
	}
}

func TestHistogramCountsSumToSeriesLength(t *testing.T) {
	values := []float64{100000, 123000, 150000, 188000, 199999, 210000, 210000}
	bins, _, _ := BuildHistogram(values, 15, false, true)

	sum := 0
	for _, b := range bins {
		sum += b.Count
	}
	if sum != len(values) {
		t.Errorf("counts sum: got %d, want %d", sum, len(values))
	}
}

func TestHistogramContiguousBins(t *testing.T) {
	values := []float64{10, 22.5, 31, 49.9, 77, 80}
	bins, min, max := BuildHistogram(values, 15, false, false)

	if len(bins) != 15 {
		t.Fatalf("bin count: got %d, want 15", len(bins))
	}
	if bins[0].RangeStart != min {
		t.Errorf("first bin start: got %v, want %v", bins[0].RangeStart, min)
	}
	for i := 0; i < len(bins)-1; i++ {
		if bins[i].RangeEnd != bins[i+1].RangeStart {
			t.Errorf("bins %d/%d not contiguous: %v != %v",
				i, i+1, bins[i].RangeEnd, bins[i+1].RangeStart)
		}
	}
	last := bins[len(bins)-1]
	if last.RangeEnd < max {
		t.Errorf("last bin end %v does not cover max %v", last.RangeEnd, max)
	}
}

func TestHistogramMaxFoldsIntoLastBin(t *testing.T) {
	values := []float64{10, 20, 30, 40, 100}
	bins, _, _ := BuildHistogram(values, 15, false, false)

	if got := bins[len(bins)-1].Count; got != 1 {
		t.Errorf("last bin count: got %d, want 1 (the maximum)", got)
	}
}

func TestDiscreteHistogramOneBinPerInteger(t *testing.T) {
	values := []float64{1, 2, 2, 4}
	bins, min, max := BuildHistogram(values, 15, true, false)

	wantBins := int(math.Ceil(max)) - int(math.Floor(min)) + 1
	if len(bins) != wantBins {
		t.Fatalf("discrete bin count: got %d, want %d", len(bins), wantBins)
	}

	for i, b := range bins {
		wantStart := float64(1 + i)
		if b.RangeStart != wantStart || b.RangeEnd != wantStart+1 {
			t.Errorf("bin %d range: got [%v,%v), want [%v,%v)", i, b.RangeStart, b.RangeEnd, wantStart, wantStart+1)
		}
	}

	// Gap integers still get a bin, with zero observations.
	if bins[2].Count != 0 {
		t.Errorf("bin for 3: got count %d, want 0", bins[2].Count)
	}
	if bins[0].Count != 1 || bins[1].Count != 2 || bins[3].Count != 1 {
		t.Errorf("counts: got %d/%d/%d/%d, want 1/2/0/1",
			bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count)
	}
	if bins[1].Label != "2" {
		t.Errorf("discrete label: got %q, want %q", bins[1].Label, "2")
	}
}

func TestDiscreteFallsBackToContinuousForFractions(t *testing.T) {
	values := []float64{1.5, 2, 3}
	bins, _, _ := BuildHistogram(values, 15, true, false)
	if len(bins) != 15 {
		t.Errorf("fractional min should force continuous bins: got %d, want 15", len(bins))
	}
}

func TestHistogramSingleValueSeries(t *testing.T) {
	values := []float64{42, 42, 42}
	bins, min, max := BuildHistogram(values, 15, false, false)

	if min != 42 || max != 42 {
		t.Errorf("min/max: got %v/%v, want 42/42", min, max)
	}
	if len(bins) != 1 {
		t.Fatalf("bin count: got %d, want 1", len(bins))
	}
	if bins[0].Count != 3 {
		t.Errorf("single bin count: got %d, want 3", bins[0].Count)
	}
}

func TestCurrencyLabels(t *testing.T) {
	values := []float64{100000, 150000, 210000}
	bins, min, max := BuildHistogram(values, 15, false, true)

	if min != 100000 || max != 210000 {
		t.Errorf("min/max: got %v/%v, want 100000/210000", min, max)
	}
	if !strings.HasPrefix(bins[0].Label, "100k") {
		t.Errorf("first label: got %q, want prefix %q", bins[0].Label, "100k")
	}
	for i, b := range bins {
		if !strings.Contains(b.Label, "k") {
			t.Errorf("bin %d label %q not abbreviated to thousands", i, b.Label)
		}
	}
	if got := bins[len(bins)-1].RangeEnd; math.Abs(got-210000) > 1e-6 {
		t.Errorf("last bin end: got %v, want 210000", got)
	}
}

func TestNonCurrencyLabelsRoundToInteger(t *testing.T) {
	bins, _, _ := BuildHistogram([]float64{10.2, 80.7}, 15, false, false)
	if strings.Contains(bins[0].Label, ".") {
		t.Errorf("non-currency label should be integer-rounded, got %q", bins[0].Label)
	}
}

func TestComputeCoversAllTrackedAttributes(t *testing.T) {
	svc := NewStatsService(testLogger(), 15)
	props := []*models.Property{
		{Price: 100000, Area: 50, Rooms: 2, PricePerArea: 2000, YearBuilt: 1990},
		{Price: 150000, Area: 60, Rooms: 3, PricePerArea: 2500, YearBuilt: 2005},
	}

	result := svc.Compute(props, 1)
	for _, attr := range models.TrackedAttributes() {
		ps, ok := result[attr]
		if !ok {
			t.Fatalf("missing stats for %s", attr)
		}
		if len(ps.Histogram) == 0 {
			t.Errorf("%s: expected non-empty histogram", attr)
		}
		if ps.Mean <= 0 {
			t.Errorf("%s: expected positive mean, got %v", attr, ps.Mean)
		}
	}
}

func TestComputeEmptyAttributeDegradesAlone(t *testing.T) {
	svc := NewStatsService(testLogger(), 15)
	// Year built is unknown everywhere; every other attribute has data.
	props := []*models.Property{
		{Price: 100000, Area: 50, Rooms: 2, PricePerArea: 2000},
		{Price: 150000, Area: 60, Rooms: 3, PricePerArea: 2500},
	}

	result := svc.Compute(props, 1)

	year := result[models.AttrYearBuilt]
	if year.Mean != 0 || year.Median != 0 || year.Min != 0 || year.Max != 0 || len(year.Histogram) != 0 {
		t.Errorf("yearBuilt should degrade to the empty default, got %+v", year)
	}
	if result[models.AttrPrice].Mean != 125000 {
		t.Errorf("price mean: got %v, want 125000", result[models.AttrPrice].Mean)
	}
}

func TestComputeMemoizesOnVersion(t *testing.T) {
	svc := NewStatsService(testLogger(), 15)
	props := propsWithPrices(100000, 200000)

	first := svc.Compute(props, 7)

	// Same version: the mutated input must not be recomputed.
	props[0].Price = 999999
	second := svc.Compute(props, 7)
	if second[models.AttrPrice].Mean != first[models.AttrPrice].Mean {
		t.Errorf("same version recomputed: got %v, want %v",
			second[models.AttrPrice].Mean, first[models.AttrPrice].Mean)
	}

	// New version: recompute picks up the change.
	third := svc.Compute(props, 8)
	if third[models.AttrPrice].Mean == first[models.AttrPrice].Mean {
		t.Errorf("new version served stale stats: %v", third[models.AttrPrice].Mean)
	}
}

func TestComputeMeanMedianMayFallInLastBin(t *testing.T) {
	svc := NewStatsService(testLogger(), 15)
	props := propsWithPrices(100, 100, 100, 100000)

	ps := svc.Compute(props, 1)[models.AttrPrice]
	idx := LocateBin(ps.Histogram, ps.Mean)
	if idx < 0 {
		t.Fatalf("mean %v not located in any bin", ps.Mean)
	}
	if ps.Histogram[idx].RangeStart > ps.Mean || ps.Mean >= ps.Histogram[idx].RangeEnd {
		// The maximum itself is allowed to sit on the last bin's end.
		if idx != len(ps.Histogram)-1 {
			t.Errorf("mean %v outside located bin [%v,%v)",
				ps.Mean, ps.Histogram[idx].RangeStart, ps.Histogram[idx].RangeEnd)
		}
	}
}
