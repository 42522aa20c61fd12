package parser

import (
	"strings"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// Config tunes the field parser.
type Config struct {
	// MinPrice filters out sub-threshold currency matches (promo badges,
	// coupon amounts). Offers below it are not offers.
	MinPrice float64
	// ContextWindow is the character radius used when scoring a price
	// candidate by its surroundings.
	ContextWindow int
}

// FieldParser turns raw observations into parsed offers. It is a pure,
// synchronous function holder with no shared mutable state; safe to call
// from the serialized observation stream without locking.
type FieldParser struct {
	cfg Config
}

// New creates a FieldParser, applying defaults for zero config values.
func New(cfg Config) *FieldParser {
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = 5.0
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 80
	}
	return &FieldParser{cfg: cfg}
}

// Parse extracts a best-effort offer from one observation. A nil result
// means "not an offer" (no price above the floor), never an error.
func (p *FieldParser) Parse(obs *models.RawObservation, platform models.Platform) *models.ParsedOffer {
	if obs == nil || strings.TrimSpace(obs.Text) == "" {
		return nil
	}
	text := obs.Text

	cands := p.priceCandidates(text, platform)
	if len(cands) == 0 {
		return nil
	}

	// Offer cards center the primary fare; totals and summaries live at the
	// edges. Prefer candidates in the middle third of the visible lines.
	if lo, hi, ok := middleThirdRange(text); ok {
		mid := cands[:0:0]
		for _, c := range cands {
			if c.start >= lo && c.end <= hi {
				mid = append(mid, c)
			}
		}
		if len(mid) > 0 {
			cands = mid
		}
	}

	dists := matchAll(text, platform, RoleDistance)
	times := matchAll(text, platform, RoleTime)
	ratings := ratingsInRange(matchAll(text, platform, RoleRating))

	price, score := selectCandidate(text, cands, dists, times, ratings, p.cfg.ContextWindow)

	ts := obs.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	offer := &models.ParsedOffer{
		Timestamp:       ts,
		Platform:        platform,
		Price:           price.value,
		RawText:         text,
		ExtractionScore: score,
	}

	rideDist, pickupDist := splitAroundPrice(dists, price)
	offer.DistanceKm = rideDist
	offer.PickupDistanceKm = pickupDist

	rideTime, pickupTime := splitAroundPrice(times, price)
	offer.EstimatedTimeMin = rideTime
	offer.PickupTimeMin = pickupTime

	if len(ratings) > 0 {
		offer.Rating = ratings[0].value
	}
	return offer
}

// priceCandidates returns every currency match that can plausibly be the
// ride fare: per-km/average figures and sub-floor values are excluded.
func (p *FieldParser) priceCandidates(text string, platform models.Platform) []match {
	all := matchAll(text, platform, RolePrice)
	out := all[:0:0]
	for _, m := range all {
		if m.value < p.cfg.MinPrice {
			continue
		}
		if isPerKmPrice(text, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Cues that mark a currency token as a per-km average rather than a fare.
// Trailing cues sit right after the number ("R$ 2,10/km"); leading cues
// label the element ("Preço médio: R$ 2,10").
var (
	perKmTrailing = []string{"/km", " por km", "/ km"}
	perKmLeading  = []string{"média", "media", "médio", "medio", "preço por km", "preco por km"}
)

const (
	perKmTrailWindow = 12
	perKmLeadWindow  = 28
)

func isPerKmPrice(text string, m match) bool {
	after := strings.ToLower(sliceAround(text, m.end, m.end+perKmTrailWindow))
	for _, cue := range perKmTrailing {
		if strings.Contains(after, cue) {
			return true
		}
	}
	lead := m.start - perKmLeadWindow
	if lead < 0 {
		lead = 0
	}
	// a leading cue labels the element on its own line only; a label on
	// the previous line must not disqualify the next line's fare
	if nl := strings.LastIndexByte(text[:m.start], '\n'); nl >= lead {
		lead = nl + 1
	}
	before := strings.ToLower(text[lead:m.start])
	for _, cue := range perKmLeading {
		if strings.Contains(before, cue) {
			return true
		}
	}
	return false
}

// splitAroundPrice picks the ride value (first match after the price) and
// the pickup value (nearest match before it, only when it differs from the
// ride value — the same number must not be read twice).
func splitAroundPrice(ms []match, price match) (ride, pickup float64) {
	for _, m := range ms {
		if m.start >= price.end {
			ride = m.value
			break
		}
	}
	for i := len(ms) - 1; i >= 0; i-- {
		if ms[i].end <= price.start {
			if ms[i].value != ride {
				pickup = ms[i].value
			}
			break
		}
	}
	return ride, pickup
}

func ratingsInRange(ms []match) []match {
	out := ms[:0:0]
	for _, m := range ms {
		if m.value >= 1.0 && m.value <= 5.0 {
			out = append(out, m)
		}
	}
	return out
}

// middleThirdRange maps the middle third of the non-blank lines back to a
// byte range of the original text. ok is false when there are too few lines
// for the split to mean anything.
func middleThirdRange(text string) (lo, hi int, ok bool) {
	type span struct{ start, end int }
	var lines []span
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, span{offset, offset + len(line)})
		}
		offset += len(line) + 1
	}
	n := len(lines)
	if n < 3 {
		return 0, 0, false
	}
	third := n / 3
	first, last := lines[third], lines[n-third-1]
	return first.start, last.end, true
}

// sliceAround returns text[from:to] clamped to valid bounds.
func sliceAround(text string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(text) {
		to = len(text)
	}
	if from >= to {
		return ""
	}
	return text[from:to]
}
