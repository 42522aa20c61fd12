package models

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/util"
)

// BucketWidth is the fixed aggregation window for regional counters.
const BucketWidth = 10 * time.Minute

// DemandBucket is the shared 10-minute counter document for one region.
// ActiveDriverIDs is a set: the active-driver count is always its
// cardinality, never a separately incremented number. The document is
// logically superseded when BucketStart advances; nothing deletes it.
type DemandBucket struct {
	City            string   `json:"city"`
	Neighborhood    string   `json:"neighborhood,omitempty"`
	BucketStart     int64    `json:"bucketStart"` // epoch ms, aligned to BucketWidth
	OffersTotal     int      `json:"offersTotal"`
	OffersUber      int      `json:"offersUber"`
	Offers99        int      `json:"offers99"`
	ActiveDriverIDs []string `json:"activeDriverIds"`
	UpdatedAt       int64    `json:"updatedAt"` // epoch ms
}

// ActiveDrivers returns the cardinality of the driver-id set.
func (b *DemandBucket) ActiveDrivers() int { return len(b.ActiveDriverIDs) }

// AddDriver inserts an id into the set, keeping it sorted so encoded
// documents compare equal regardless of arrival order.
func (b *DemandBucket) AddDriver(id string) {
	if id == "" {
		return
	}
	i := sort.SearchStrings(b.ActiveDriverIDs, id)
	if i < len(b.ActiveDriverIDs) && b.ActiveDriverIDs[i] == id {
		return
	}
	b.ActiveDriverIDs = append(b.ActiveDriverIDs, "")
	copy(b.ActiveDriverIDs[i+1:], b.ActiveDriverIDs[i:])
	b.ActiveDriverIDs[i] = id
}

// CountOffer accumulates one offer from the given platform.
func (b *DemandBucket) CountOffer(p Platform) {
	b.OffersTotal++
	switch p {
	case PlatformUber:
		b.OffersUber++
	case Platform99:
		b.Offers99++
	case PlatformUnknown:
	}
}

// Reset zeroes the counters for a new bucket window.
func (b *DemandBucket) Reset(bucketStart int64) {
	b.BucketStart = bucketStart
	b.OffersTotal = 0
	b.OffersUber = 0
	b.Offers99 = 0
	b.ActiveDriverIDs = nil
}

// BucketStartFor aligns t down to the bucket epoch, in ms.
func BucketStartFor(t time.Time) int64 {
	return util.AlignToBucket(t, BucketWidth).UnixMilli()
}

// RegionDocID derives the deterministic document identity for a
// city/neighborhood pair. City-only and city+neighborhood rollups get
// separate documents.
func RegionDocID(city, neighborhood string) string {
	c := NormalizeRegion(city)
	if c == "" {
		return ""
	}
	n := NormalizeRegion(neighborhood)
	if n == "" {
		return c
	}
	return c + ":" + n
}

// NormalizeRegion lowercases and collapses every non-alphanumeric run to a
// single dash, so "São Paulo" and "sao-paulo " land on the same document.
func NormalizeRegion(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(stripAccent(r))
			dash = false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

func stripAccent(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ã', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'õ', 'ö':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	default:
		return r
	}
}

// DemandLevel classifies offer frequency in the recent window.
type DemandLevel string

const (
	DemandHigh    DemandLevel = "high"
	DemandMedium  DemandLevel = "medium"
	DemandLow     DemandLevel = "low"
	DemandUnknown DemandLevel = "unknown"
)

// Trend is a qualitative direction of change.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// PriceTrend is the direction of the session's price-per-km drift.
type PriceTrend string

const (
	PriceIncreasing PriceTrend = "increasing"
	PriceDecreasing PriceTrend = "decreasing"
	PriceStable     PriceTrend = "stable"
)

// SessionStats is the pure derivation over the session buffer.
type SessionStats struct {
	RidesLast15Min int         `json:"rides_last_15min"`
	RidesLast30Min int         `json:"rides_last_30min"`
	RidesLast60Min int         `json:"rides_last_60min"`
	AcceptedLastHr int         `json:"accepted_last_hour"`
	AvgPrice15Min  float64     `json:"avg_price_15min"`
	AvgPricePerKm  float64     `json:"avg_price_per_km_15min"`
	DemandLevel    DemandLevel `json:"demand_level"`
	DemandTrend    Trend       `json:"demand_trend"`
	PriceTrend     PriceTrend  `json:"price_trend"`
	SessionStart   time.Time   `json:"session_start,omitempty"`
	BufferedOffers int         `json:"buffered_offers"`
}

// WindowCount is a per-platform offer count over one time window.
type WindowCount struct {
	Total int `json:"total"`
	Uber  int `json:"uber"`
	Nine9 int `json:"n99"`
}

// RegionCount is a ranked row of the top-regions read path.
type RegionCount struct {
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood,omitempty"`
	WindowCount
}

// RegionalTrend is the 120-minute three-sub-window classification for one
// region.
type RegionalTrend struct {
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Oldest       int    `json:"window_120m"`
	Middle       int    `json:"window_60m"`
	Newest       int    `json:"window_30m"`
	Trend        Trend  `json:"trend"`
}

// RegionalStats are the simple counting passes over archived offers.
type RegionalStats struct {
	City     string      `json:"city"`
	LastHour WindowCount `json:"last_hour"`
	Last3Hrs WindowCount `json:"last_3_hours"`
	Today    WindowCount `json:"today"`
}
