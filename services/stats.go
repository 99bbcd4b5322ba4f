package services

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"optihome/models"
	"optihome/utils"
)

// DefaultBinCount is the number of buckets for continuous histograms.
const DefaultBinCount = 15

// attributeSpec binds an attribute to its accessor and histogram shape.
type attributeSpec struct {
	get      func(*models.Property) float64
	discrete bool
	currency bool
}

var attributeSpecs = map[models.Attribute]attributeSpec{
	models.AttrPrice:        {get: func(p *models.Property) float64 { return p.Price }, currency: true},
	models.AttrArea:         {get: func(p *models.Property) float64 { return p.Area }},
	models.AttrRooms:        {get: func(p *models.Property) float64 { return float64(p.Rooms) }, discrete: true},
	models.AttrYearBuilt:    {get: func(p *models.Property) float64 { return float64(p.YearBuilt) }},
	models.AttrPricePerArea: {get: func(p *models.Property) float64 { return p.PricePerArea }, currency: true},
}

// AttributeValue returns the raw numeric value of attr for p, or NaN for
// an unknown attribute.
func AttributeValue(p *models.Property, attr models.Attribute) float64 {
	spec, ok := attributeSpecs[attr]
	if !ok {
		return math.NaN()
	}
	return spec.get(p)
}

// CleanValues extracts the values for which get returns a finite, strictly
// positive number. Zero, negative, NaN and infinite values all mean
// "unknown" and must never distort bin boundaries or averages. Every
// downstream calculation applies exactly this predicate.
func CleanValues(props []*models.Property, get func(*models.Property) float64) []float64 {
	out := make([]float64, 0, len(props))
	for _, p := range props {
		if p == nil {
			continue
		}
		v := get(p)
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Mean returns the arithmetic average of values, 0 for an empty series.
func Mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// Median returns the median of values (average of the two middle elements
// for even length), 0 for an empty series.
func Median(values []float64) float64 {
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return m
}

// BuildHistogram buckets a cleaned series into histogram bins and returns
// the bins together with the series min and max.
//
// When discrete is set and both min and max are whole numbers, one bin is
// allocated per integer from min to max inclusive, each covering [i, i+1);
// empty bins are emitted so the chart shows a continuous integer axis.
// Otherwise binCount equal-width bins span [min, max], and observations
// equal to max fold into the last bin. An empty series yields no bins.
func BuildHistogram(values []float64, binCount int, discrete, currency bool) ([]models.HistogramBin, float64, float64) {
	if len(values) == 0 {
		return nil, 0, 0
	}
	if binCount <= 0 {
		binCount = DefaultBinCount
	}

	min, _ := stats.Min(values)
	max, _ := stats.Max(values)

	if discrete && isWhole(min) && isWhole(max) {
		return discreteBins(values, min, max), min, max
	}

	if min == max {
		// Every observation shares the one value; a single bin carries them.
		bin := models.HistogramBin{
			Label:      formatRangeLabel(min, max, currency),
			RangeStart: min,
			RangeEnd:   max,
			Count:      len(values),
		}
		return []models.HistogramBin{bin}, min, max
	}

	binWidth := (max - min) / float64(binCount)
	counts := make([]int, binCount)
	for _, v := range values {
		idx := int((v - min) / binWidth)
		if idx >= binCount {
			// Happens exactly at v == max.
			idx = binCount - 1
		}
		counts[idx]++
	}

	bins := make([]models.HistogramBin, binCount)
	for i := range bins {
		start := min + float64(i)*binWidth
		end := min + float64(i+1)*binWidth
		bins[i] = models.HistogramBin{
			Label:      formatRangeLabel(start, end, currency),
			RangeStart: start,
			RangeEnd:   end,
			Count:      counts[i],
		}
	}
	return bins, min, max
}

func discreteBins(values []float64, min, max float64) []models.HistogramBin {
	lo := int(math.Floor(min))
	hi := int(math.Ceil(max))
	n := hi - lo + 1

	counts := make([]int, n)
	for _, v := range values {
		idx := int(math.Floor(v)) - lo
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		counts[idx]++
	}

	bins := make([]models.HistogramBin, n)
	for i := range bins {
		bins[i] = models.HistogramBin{
			Label:      strconv.Itoa(lo + i),
			RangeStart: float64(lo + i),
			RangeEnd:   float64(lo + i + 1),
			Count:      counts[i],
		}
	}
	return bins
}

func isWhole(v float64) bool {
	return v == math.Trunc(v)
}

// formatRangeLabel renders a bin label. Currency bounds are abbreviated to
// thousands ("140k-209k"), non-currency bounds round to the nearest integer.
func formatRangeLabel(start, end float64, currency bool) string {
	if currency {
		return fmt.Sprintf("%dk-%dk", int(math.Round(start/1000)), int(math.Round(end/1000)))
	}
	return fmt.Sprintf("%d-%d", int(math.Round(start)), int(math.Round(end)))
}

// StatsService computes per-attribute statistics over a property list.
// Results are memoized on the dataset version supplied by the storage
// layer, so repeated requests over an unchanged dataset are free.
type StatsService struct {
	logger   *utils.Logger
	binCount int

	mu            sync.Mutex
	cachedVersion uint64
	cached        models.PropertyStats
}

// NewStatsService creates a StatsService with the given histogram bin count.
func NewStatsService(logger *utils.Logger, binCount int) *StatsService {
	if binCount <= 0 {
		binCount = DefaultBinCount
	}
	return &StatsService{logger: logger, binCount: binCount}
}

// Compute returns statistics for every tracked attribute. The version is
// the storage layer's dataset version counter; a result computed for the
// same version is served from cache. Attribute pipelines are independent
// and run in parallel; a fault in one leaves the others intact.
func (s *StatsService) Compute(props []*models.Property, version uint64) models.PropertyStats {
	s.mu.Lock()
	if s.cached != nil && s.cachedVersion == version {
		cached := s.cached
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result := make(models.PropertyStats, len(attributeSpecs))
	var resultMu sync.Mutex

	g := new(errgroup.Group)
	for _, attr := range models.TrackedAttributes() {
		attr := attr
		g.Go(func() error {
			ps := s.computeAttribute(props, attr)
			resultMu.Lock()
			result[attr] = ps
			resultMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.cachedVersion = version
	s.cached = result
	s.mu.Unlock()
	return result
}

// computeAttribute runs one attribute's pipeline. A panic anywhere in the
// pipeline is logged and degrades to the empty-series result so the rest
// of the dashboard keeps functioning.
func (s *StatsService) computeAttribute(props []*models.Property, attr models.Attribute) (ps models.ParameterStats) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[stats] %s pipeline failed: %v, serving empty stats", attr, r)
			ps = models.ParameterStats{}
		}
	}()

	spec := attributeSpecs[attr]
	values := CleanValues(props, spec.get)
	bins, min, max := BuildHistogram(values, s.binCount, spec.discrete, spec.currency)

	return models.ParameterStats{
		Mean:      Mean(values),
		Median:    Median(values),
		Min:       min,
		Max:       max,
		Histogram: bins,
	}
}
