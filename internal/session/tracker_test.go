package session

import (
	"sync"
	"testing"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

var baseTime = time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)

func offerAt(ts time.Time, price, distKm float64, p models.Platform) *models.ParsedOffer {
	return &models.ParsedOffer{Timestamp: ts, Platform: p, Price: price, DistanceKm: distKm}
}

func TestRecordOfferCountsWindows(t *testing.T) {
	tr := NewTracker(Config{})
	tr.StartSession(baseTime.Add(-2 * time.Hour))

	const n = 7
	for i := 0; i < n; i++ {
		tr.RecordOffer(offerAt(baseTime.Add(-time.Duration(i)*time.Minute), 20, 5, models.PlatformUber))
	}

	stats := tr.ComputeStats(baseTime)
	if stats.RidesLast15Min != n {
		t.Fatalf("rides15 = %d, want %d", stats.RidesLast15Min, n)
	}
	if stats.RidesLast30Min < n {
		t.Fatalf("rides30 = %d, want >= %d", stats.RidesLast30Min, n)
	}
	if stats.RidesLast60Min != n {
		t.Fatalf("rides60 = %d, want %d", stats.RidesLast60Min, n)
	}
	if stats.AvgPrice15Min != 20 {
		t.Fatalf("avg price = %v, want 20", stats.AvgPrice15Min)
	}
	if stats.AvgPricePerKm != 4 {
		t.Fatalf("avg price/km = %v, want 4", stats.AvgPricePerKm)
	}
}

func TestBufferTrimsOldestFirst(t *testing.T) {
	tr := NewTracker(Config{Capacity: 5})
	for i := 0; i < 8; i++ {
		tr.RecordOffer(offerAt(baseTime.Add(time.Duration(i)*time.Minute), float64(10+i), 0, models.Platform99))
	}
	snaps := tr.Snapshots()
	if len(snaps) != 5 {
		t.Fatalf("len = %d, want 5", len(snaps))
	}
	if snaps[0].Price != 13 {
		t.Fatalf("oldest surviving price = %v, want 13", snaps[0].Price)
	}
}

func TestDemandTrendEdgeCases(t *testing.T) {
	cases := []struct {
		cur, prev int
		want      models.Trend
	}{
		{0, 0, models.TrendStable},
		{1, 0, models.TrendRising},
		{3, 3, models.TrendStable},
		{5, 2, models.TrendRising},
		{2, 5, models.TrendFalling},
	}
	for _, c := range cases {
		if got := classifyDemandTrend(c.cur, c.prev); got != c.want {
			t.Fatalf("trend(%d,%d) = %v, want %v", c.cur, c.prev, got, c.want)
		}
	}
}

func TestDemandTrendFromBuffer(t *testing.T) {
	tr := NewTracker(Config{})
	// nothing in the prior hour, one offer now
	tr.RecordOffer(offerAt(baseTime.Add(-time.Minute), 18, 4, models.PlatformUber))
	if got := tr.ComputeStats(baseTime).DemandTrend; got != models.TrendRising {
		t.Fatalf("trend = %v, want rising", got)
	}

	tr2 := NewTracker(Config{})
	// two in each hour
	for _, ago := range []time.Duration{5 * time.Minute, 20 * time.Minute, 70 * time.Minute, 90 * time.Minute} {
		tr2.RecordOffer(offerAt(baseTime.Add(-ago), 18, 4, models.PlatformUber))
	}
	if got := tr2.ComputeStats(baseTime).DemandTrend; got != models.TrendStable {
		t.Fatalf("trend = %v, want stable", got)
	}
}

func TestPriceTrendDeadZone(t *testing.T) {
	if got := classifyPriceTrend(4.4, 4.0); got != models.PriceStable {
		t.Fatalf("+10%% is inside the dead zone, got %v", got)
	}
	if got := classifyPriceTrend(4.5, 4.0); got != models.PriceIncreasing {
		t.Fatalf("want increasing, got %v", got)
	}
	if got := classifyPriceTrend(3.5, 4.0); got != models.PriceDecreasing {
		t.Fatalf("want decreasing, got %v", got)
	}
	if got := classifyPriceTrend(0, 4.0); got != models.PriceStable {
		t.Fatalf("missing data must be stable, got %v", got)
	}
}

func TestDemandLevelThresholds(t *testing.T) {
	tr := NewTracker(Config{HighThreshold: 10, MediumThreshold: 5, LowThreshold: 1})
	cases := []struct {
		rides int
		want  models.DemandLevel
	}{
		{0, models.DemandUnknown},
		{1, models.DemandLow},
		{5, models.DemandMedium},
		{12, models.DemandHigh},
	}
	for _, c := range cases {
		if got := tr.classifyLevel(c.rides); got != c.want {
			t.Fatalf("level(%d) = %v, want %v", c.rides, got, c.want)
		}
	}
}

func TestMarkLatestAccepted(t *testing.T) {
	tr := NewTracker(Config{AcceptWindow: 60 * time.Second})
	tr.RecordOffer(offerAt(baseTime.Add(-30*time.Second), 15, 3, models.PlatformUber))
	tr.RecordOffer(offerAt(baseTime.Add(-10*time.Second), 22, 6, models.Platform99))

	if !tr.MarkLatestAccepted(models.PlatformUber, baseTime) {
		t.Fatalf("expected acceptance to be attributed")
	}
	// second call: already accepted, nothing left in the window
	if tr.MarkLatestAccepted(models.PlatformUber, baseTime) {
		t.Fatalf("flag must flip exactly once")
	}
	snaps := tr.Snapshots()
	if !snaps[0].WasAccepted || snaps[1].WasAccepted {
		t.Fatalf("wrong snapshot flipped: %+v", snaps)
	}
}

func TestMarkLatestAcceptedEmptyAndStale(t *testing.T) {
	tr := NewTracker(Config{})
	if tr.MarkLatestAccepted(models.PlatformUber, baseTime) {
		t.Fatalf("empty history must be a no-op")
	}
	tr.RecordOffer(offerAt(baseTime.Add(-5*time.Minute), 15, 3, models.PlatformUber))
	if tr.MarkLatestAccepted(models.PlatformUber, baseTime) {
		t.Fatalf("snapshot outside the accept window must not flip")
	}
	if tr.Snapshots()[0].WasAccepted {
		t.Fatalf("stale snapshot was mutated")
	}
}

func TestRestoreFromExternalOnlyWhenEmpty(t *testing.T) {
	tr := NewTracker(Config{})
	restored := tr.RestoreFromExternal([]*models.ParsedOffer{
		offerAt(baseTime.Add(-20*time.Minute), 18, 4, models.PlatformUber),
		offerAt(baseTime.Add(-40*time.Minute), 12, 3, models.Platform99),
	})
	if !restored {
		t.Fatalf("expected restore into empty buffer")
	}
	if got := tr.SessionStart(); !got.Equal(baseTime.Add(-40 * time.Minute)) {
		t.Fatalf("session start = %v, want earliest restored offer", got)
	}
	if len(tr.Snapshots()) != 2 {
		t.Fatalf("expected 2 snapshots")
	}

	// a second restore must not duplicate
	if tr.RestoreFromExternal([]*models.ParsedOffer{offerAt(baseTime, 9, 2, models.PlatformUber)}) {
		t.Fatalf("restore into non-empty buffer must be refused")
	}
	if len(tr.Snapshots()) != 2 {
		t.Fatalf("buffer changed on refused restore")
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	tr := NewTracker(Config{Capacity: 50})
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.RecordOffer(offerAt(time.Now(), 10, 2, models.PlatformUber))
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s := tr.ComputeStats(time.Now())
				if s.BufferedOffers > 50 {
					t.Errorf("buffer over capacity: %d", s.BufferedOffers)
					return
				}
			}
		}
	}()

	wg.Wait()
}
