// Package session maintains the per-driver offer history and derives
// sliding-window demand statistics from it.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// Config tunes the tracker.
type Config struct {
	// Capacity bounds the history buffer; oldest entries are trimmed first.
	// 200 entries is roughly two hours at typical offer rates.
	Capacity int
	// AcceptWindow is how far back an acceptance may be attributed.
	AcceptWindow time.Duration
	// Demand-level thresholds on the 30-minute offer count.
	HighThreshold   int
	MediumThreshold int
	LowThreshold    int
}

func (c *Config) applyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 200
	}
	if c.AcceptWindow <= 0 {
		c.AcceptWindow = 60 * time.Second
	}
	if c.HighThreshold <= 0 {
		c.HighThreshold = 10
	}
	if c.MediumThreshold <= 0 {
		c.MediumThreshold = 5
	}
	if c.LowThreshold <= 0 {
		c.LowThreshold = 1
	}
}

// Tracker holds one driver session's bounded, time-ordered offer history.
// Appends come from the observation stream while a reporting consumer reads
// concurrently; all access goes through the mutex so a reader can never see
// a half-written entry.
type Tracker struct {
	mu        sync.RWMutex
	cfg       Config
	active    bool
	startedAt time.Time
	buf       []*models.RideSnapshot
}

// NewTracker creates an idle tracker.
func NewTracker(cfg Config) *Tracker {
	cfg.applyDefaults()
	return &Tracker{cfg: cfg}
}

// StartSession moves Idle → Active. Starting an active session only resets
// the start time.
func (t *Tracker) StartSession(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.startedAt = now
}

// EndSession moves back to Idle and clears the history.
func (t *Tracker) EndSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.startedAt = time.Time{}
	t.buf = nil
}

// Active reports the session state.
func (t *Tracker) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// SessionStart returns the session start time (zero when idle and never
// restored).
func (t *Tracker) SessionStart() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startedAt
}

// RecordOffer appends a snapshot of the offer, trimming oldest-first when
// the buffer exceeds capacity. An offer arriving while idle implicitly
// starts the session at the offer's timestamp.
func (t *Tracker) RecordOffer(o *models.ParsedOffer) {
	if o == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		t.active = true
		t.startedAt = o.Timestamp
	}
	t.buf = append(t.buf, models.SnapshotFromOffer(o))
	if over := len(t.buf) - t.cfg.Capacity; over > 0 {
		t.buf = append(t.buf[:0:0], t.buf[over:]...)
	}
}

// MarkLatestAccepted flips the acceptance flag on the most recent
// unaccepted snapshot of the platform within the accept window. Returns
// false, mutating nothing, when no snapshot qualifies.
func (t *Tracker) MarkLatestAccepted(p models.Platform, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := now.Add(-t.cfg.AcceptWindow)
	for i := len(t.buf) - 1; i >= 0; i-- {
		s := t.buf[i]
		if s.Timestamp.Before(cutoff) {
			return false
		}
		if s.Platform == p && !s.WasAccepted {
			s.WasAccepted = true
			return true
		}
	}
	return false
}

// RestoreFromExternal seeds the buffer from persisted offers, but only when
// the buffer is empty, so a restart cannot double-accumulate. When no
// session is active the start time is backfilled from the earliest restored
// offer. Returns whether anything was restored.
func (t *Tracker) RestoreFromExternal(offers []*models.ParsedOffer) bool {
	if len(offers) == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) > 0 {
		return false
	}
	snaps := make([]*models.RideSnapshot, 0, len(offers))
	for _, o := range offers {
		if o != nil {
			snaps = append(snaps, models.SnapshotFromOffer(o))
		}
	}
	if len(snaps) == 0 {
		return false
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Timestamp.Before(snaps[j].Timestamp) })
	if over := len(snaps) - t.cfg.Capacity; over > 0 {
		snaps = snaps[over:]
	}
	t.buf = snaps
	if !t.active {
		t.startedAt = snaps[0].Timestamp
	}
	return true
}

// ComputeStats derives windowed statistics purely from the buffer and the
// given clock; it has no side effects and is fully replayable.
func (t *Tracker) ComputeStats(now time.Time) models.SessionStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := models.SessionStats{
		SessionStart:   t.startedAt,
		BufferedOffers: len(t.buf),
	}

	var (
		sumPrice15   float64
		sumPerKm15   float64
		nPerKm15     int
		sumPerKmPrev float64
		nPerKmPrev   int
		curHour      int
		prevHour     int
	)
	cut15 := now.Add(-15 * time.Minute)
	cut30 := now.Add(-30 * time.Minute)
	cut60 := now.Add(-60 * time.Minute)
	cut120 := now.Add(-120 * time.Minute)

	for _, s := range t.buf {
		ts := s.Timestamp
		if ts.After(now) {
			continue
		}
		if ts.After(cut60) {
			stats.RidesLast60Min++
			curHour++
			if s.WasAccepted {
				stats.AcceptedLastHr++
			}
		} else if ts.After(cut120) {
			prevHour++
		}
		if ts.After(cut30) {
			stats.RidesLast30Min++
		}
		if ts.After(cut15) {
			stats.RidesLast15Min++
			sumPrice15 += s.Price
			if s.PricePerKm > 0 {
				sumPerKm15 += s.PricePerKm
				nPerKm15++
			}
		} else if ts.After(cut30) && s.PricePerKm > 0 {
			sumPerKmPrev += s.PricePerKm
			nPerKmPrev++
		}
	}

	if stats.RidesLast15Min > 0 {
		stats.AvgPrice15Min = sumPrice15 / float64(stats.RidesLast15Min)
	}
	if nPerKm15 > 0 {
		stats.AvgPricePerKm = sumPerKm15 / float64(nPerKm15)
	}

	stats.DemandLevel = t.classifyLevel(stats.RidesLast30Min)
	stats.DemandTrend = classifyDemandTrend(curHour, prevHour)
	stats.PriceTrend = classifyPriceTrend(avg(sumPerKm15, nPerKm15), avg(sumPerKmPrev, nPerKmPrev))
	return stats
}

func (t *Tracker) classifyLevel(rides30 int) models.DemandLevel {
	switch {
	case rides30 >= t.cfg.HighThreshold:
		return models.DemandHigh
	case rides30 >= t.cfg.MediumThreshold:
		return models.DemandMedium
	case rides30 >= t.cfg.LowThreshold:
		return models.DemandLow
	default:
		return models.DemandUnknown
	}
}

// classifyDemandTrend compares the current hour to the prior one. Both
// empty means nothing changed; an empty prior hour with any current offers
// is rising.
func classifyDemandTrend(cur, prev int) models.Trend {
	switch {
	case cur == 0 && prev == 0:
		return models.TrendStable
	case prev == 0:
		return models.TrendRising
	case cur > prev:
		return models.TrendRising
	case cur < prev:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// classifyPriceTrend compares the 15-minute average price-per-km to the
// preceding 15 minutes with a ±10% dead zone. Missing data on either side
// reads as stable.
func classifyPriceTrend(cur, prev float64) models.PriceTrend {
	if cur <= 0 || prev <= 0 {
		return models.PriceStable
	}
	// single multiplication keeps the exact ±10% boundary inside the dead
	// zone; a division-based delta puts 4.40/4.00 a ulp above 0.10
	switch {
	case cur > prev*1.10:
		return models.PriceIncreasing
	case cur < prev*0.90:
		return models.PriceDecreasing
	default:
		return models.PriceStable
	}
}

func avg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Snapshots returns a copy of the buffer for external persistence.
func (t *Tracker) Snapshots() []models.RideSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.RideSnapshot, len(t.buf))
	for i, s := range t.buf {
		out[i] = *s
	}
	return out
}
