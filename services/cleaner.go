package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"optihome/models"
	"optihome/utils"
)

var (
	// numberRegexp captures numeric values with European grouping/decimals,
	// e.g. "185 000 €", "62,5 m²", "1 850 €/m²".
	numberRegexp = regexp.MustCompile(`\d+(?:[ \x{00a0}]\d{3})*(?:[.,]\d+)?`)
	// roomsRegexp captures "3 izbový byt" / "4 izby" style room counts.
	roomsRegexp = regexp.MustCompile(`(\d+)\s*(?:izb|izieb|room)`)
	// externalIDRegexp captures the numeric listing id from a detail URL.
	externalIDRegexp = regexp.MustCompile(`/(\d{4,})(?:[/?#]|$)`)
	// digitRegexp is the bare-number fallback for room counts.
	digitRegexp = regexp.MustCompile(`\d+`)
)

// Plausibility window for year built; anything outside is "unknown".
const (
	minYearBuilt = 1800
	maxYearBuilt = 2100
)

// Cleaner transforms RawProperties into clean, validated Properties.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean processes raw scraped records and returns validated properties.
// Records without a URL or a parseable external id are dropped, as are
// duplicates of an already-seen external id. Unparseable numeric fields
// become zero, which every downstream statistic treats as "unknown".
func (c *Cleaner) Clean(raw []*models.RawProperty) []*models.Property {
	seen := make(map[string]struct{})
	result := make([]*models.Property, 0, len(raw))

	for _, r := range raw {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping record with empty URL: %s", r.Title)
			continue
		}

		extID := externalIDFromURL(url)
		if extID == "" {
			c.logger.Warn("[cleaner] Dropping record with no listing id in URL: %s", url)
			continue
		}

		if _, dup := seen[extID]; dup {
			c.logger.Debug("[cleaner] Duplicate listing id skipped: %s", extID)
			continue
		}
		seen[extID] = struct{}{}

		price := parseNumber(r.RawPrice)
		area := parseNumber(r.RawArea)

		prop := &models.Property{
			ExternalID:   extID,
			Kind:         normaliseKind(r.Kind),
			Title:        normaliseText(r.Title),
			Location:     normaliseText(r.Location),
			Price:        price,
			Area:         area,
			Rooms:        c.parseRooms(r.RawRooms),
			PricePerArea: c.pricePerArea(price, area, r.RawPricePerArea),
			YearBuilt:    c.parseYear(r.RawYear),
			Description:  normaliseText(r.Description),
			Seller:       normaliseText(r.Seller),
			URL:          url,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}

		result = append(result, prop)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d properties (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// pricePerArea derives price/area when both are known; otherwise it falls
// back to the value printed on the listing card, if any.
func (c *Cleaner) pricePerArea(price, area float64, rawCard string) float64 {
	if price > 0 && area > 0 {
		return price / area
	}
	if v := parseNumber(rawCard); v > 0 {
		c.logger.Debug("[cleaner] Using card price/m² %.2f (price or area missing)", v)
		return v
	}
	return 0
}

// parseRooms extracts a room count from phrases like "3 izbový byt".
// Falls back to the first standalone number in the text.
func (c *Cleaner) parseRooms(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}

	if m := roomsRegexp.FindStringSubmatch(raw); len(m) >= 2 {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 && n < 100 {
			return n
		}
	}

	// Studio flats ("garsónka") carry no digit at all.
	if strings.Contains(raw, "gars") || strings.Contains(raw, "studio") {
		return 1
	}

	if m := digitRegexp.FindString(raw); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil && n > 0 && n < 100 {
			return n
		}
	}
	return 0
}

// parseYear extracts a plausible construction year, 0 when unknown.
func (c *Cleaner) parseYear(raw string) int {
	v := parseNumber(raw)
	year := int(v)
	if year > minYearBuilt && year < maxYearBuilt {
		return year
	}
	return 0
}

// parseNumber extracts the first numeric value from a raw string, handling
// space/NBSP thousands grouping and comma decimals.
func parseNumber(raw string) float64 {
	match := numberRegexp.FindString(raw)
	if match == "" {
		return 0
	}

	cleaned := strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(match)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// externalIDFromURL pulls the numeric listing id out of a detail URL,
// e.g. "https://www.nehnutelnosti.sk/inzerat/123456/..." → "123456".
func externalIDFromURL(url string) string {
	matches := externalIDRegexp.FindAllStringSubmatch(url, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseKind(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s != "flat" && s != "house" {
		return "flat"
	}
	return s
}
