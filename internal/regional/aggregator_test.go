package regional

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/repository"
)

var testTime = time.Date(2025, 3, 12, 14, 35, 0, 0, time.UTC)

func newTestAggregator() (*Aggregator, *repository.MemoryBucketStore, *repository.MemoryOfferArchive) {
	store := repository.NewMemoryBucketStore()
	archive := repository.NewMemoryOfferArchive()
	return New(store, archive, nil, nil), store, archive
}

func offerAt(ts time.Time, platform models.Platform, price float64) *models.ParsedOffer {
	return &models.ParsedOffer{Timestamp: ts, Platform: platform, Price: price, DistanceKm: 5}
}

func TestRecordOfferMergesDrivers(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "São Paulo", Neighborhood: "Moema"}

	if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 18.5), loc, "driver-a"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := agg.RecordOffer(ctx, offerAt(testTime.Add(time.Minute), models.Platform99, 12.0), loc, "driver-b"); err != nil {
		t.Fatalf("record: %v", err)
	}

	b, err := agg.Bucket(ctx, "São Paulo", "")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if b == nil {
		t.Fatal("city bucket missing")
	}
	if b.OffersTotal != 2 || b.OffersUber != 1 || b.Offers99 != 1 {
		t.Fatalf("city counts = %d/%d/%d, want 2/1/1", b.OffersTotal, b.OffersUber, b.Offers99)
	}
	if got := b.ActiveDrivers(); got != 2 {
		t.Fatalf("active drivers = %d, want 2", got)
	}

	hood, err := agg.Bucket(ctx, "São Paulo", "Moema")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if hood == nil || hood.OffersTotal != 2 {
		t.Fatalf("neighborhood bucket = %+v, want total 2", hood)
	}
}

func TestRecordOfferSameDriverCountsOnce(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "Curitiba"}

	for i := 0; i < 3; i++ {
		if err := agg.RecordOffer(ctx, offerAt(testTime.Add(time.Duration(i)*time.Minute), models.PlatformUber, 20), loc, "driver-a"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	b, err := agg.Bucket(ctx, "Curitiba", "")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if b.OffersTotal != 3 {
		t.Fatalf("total = %d, want 3", b.OffersTotal)
	}
	if got := b.ActiveDrivers(); got != 1 {
		t.Fatalf("active drivers = %d, want 1", got)
	}
}

func TestRecordOfferRollsOverStaleBucket(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "Recife"}

	if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 15), loc, "driver-a"); err != nil {
		t.Fatalf("record: %v", err)
	}
	next := testTime.Add(models.BucketWidth)
	if err := agg.RecordOffer(ctx, offerAt(next, models.Platform99, 11), loc, "driver-b"); err != nil {
		t.Fatalf("record: %v", err)
	}

	b, err := agg.Bucket(ctx, "Recife", "")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if b.BucketStart != models.BucketStartFor(next) {
		t.Fatalf("bucket start = %d, want %d", b.BucketStart, models.BucketStartFor(next))
	}
	if b.OffersTotal != 1 || b.Offers99 != 1 || b.OffersUber != 0 {
		t.Fatalf("counts after rollover = %d/%d/%d, want 1/0/1", b.OffersTotal, b.OffersUber, b.Offers99)
	}
	if got := b.ActiveDrivers(); got != 1 {
		t.Fatalf("active drivers after rollover = %d, want 1", got)
	}
}

func TestRecordOfferSkipsUnresolvedCity(t *testing.T) {
	agg, _, archive := newTestAggregator()
	ctx := context.Background()

	if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 18), nil, "driver-a"); err != nil {
		t.Fatalf("nil location: %v", err)
	}
	gpsOnly := &models.Location{Latitude: -23.5, Longitude: -46.6}
	if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 18), gpsOnly, "driver-a"); err != nil {
		t.Fatalf("gps-only location: %v", err)
	}

	rows, err := archive.RegionCounts(ctx, testTime.Add(-time.Hour), testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("region counts: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("archived %d region rows, want 0", len(rows))
	}
}

func TestRecordOfferNormalizesRegionSpelling(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()

	if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 18), &models.Location{City: "São Paulo"}, "a"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := agg.RecordOffer(ctx, offerAt(testTime, models.Platform99, 13), &models.Location{City: "sao paulo"}, "b"); err != nil {
		t.Fatalf("record: %v", err)
	}

	b, err := agg.Bucket(ctx, "SAO PAULO", "")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if b == nil || b.OffersTotal != 2 {
		t.Fatalf("spellings landed on different documents: %+v", b)
	}
}

func TestRecordOfferConcurrent(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "Fortaleza"}

	const drivers = 16
	const perDriver = 5
	var wg sync.WaitGroup
	for d := 0; d < drivers; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			id := fmt.Sprintf("driver-%02d", d)
			for i := 0; i < perDriver; i++ {
				if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 20), loc, id); err != nil {
					t.Errorf("record: %v", err)
				}
			}
		}(d)
	}
	wg.Wait()

	b, err := agg.Bucket(ctx, "Fortaleza", "")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if b.OffersTotal != drivers*perDriver {
		t.Fatalf("total = %d, want %d (lost updates)", b.OffersTotal, drivers*perDriver)
	}
	if got := b.ActiveDrivers(); got != drivers {
		t.Fatalf("active drivers = %d, want %d", got, drivers)
	}
}

func TestTrendClassification(t *testing.T) {
	cases := []struct {
		name                   string
		oldest, middle, newest int
		want                   models.Trend
	}{
		{"strictly rising", 2, 5, 9, models.TrendRising},
		{"rising with plateau", 3, 3, 7, models.TrendRising},
		{"strictly falling", 9, 4, 1, models.TrendFalling},
		{"flat", 4, 4, 4, models.TrendStable},
		{"dip and recover", 5, 2, 6, models.TrendStable},
		{"spike and drop", 2, 8, 3, models.TrendStable},
		{"all empty", 0, 0, 0, models.TrendStable},
	}
	for _, tc := range cases {
		if got := classifyTrend(tc.oldest, tc.middle, tc.newest); got != tc.want {
			t.Errorf("%s: classifyTrend(%d,%d,%d) = %s, want %s",
				tc.name, tc.oldest, tc.middle, tc.newest, got, tc.want)
		}
	}
}

func TestTrendFromArchive(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "Salvador"}
	now := testTime

	// 1 offer in (now-120m, now-60m], 2 in (now-60m, now-30m], 4 in (now-30m, now]
	offsets := []time.Duration{
		-90 * time.Minute,
		-50 * time.Minute, -40 * time.Minute,
		-25 * time.Minute, -15 * time.Minute, -10 * time.Minute, -5 * time.Minute,
	}
	for i, off := range offsets {
		id := fmt.Sprintf("d%d", i)
		if err := agg.RecordOffer(ctx, offerAt(now.Add(off), models.PlatformUber, 20), loc, id); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	tr, err := agg.Trend(ctx, "Salvador", "", now)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if tr.Oldest != 1 || tr.Middle != 2 || tr.Newest != 4 {
		t.Fatalf("windows = %d/%d/%d, want 1/2/4", tr.Oldest, tr.Middle, tr.Newest)
	}
	if tr.Trend != models.TrendRising {
		t.Fatalf("trend = %s, want %s", tr.Trend, models.TrendRising)
	}
}

func TestTopCitiesRanking(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	now := testTime

	seed := []struct {
		city  string
		hood  string
		count int
		p     models.Platform
	}{
		{"São Paulo", "Moema", 3, models.PlatformUber},
		{"São Paulo", "Pinheiros", 2, models.Platform99},
		{"Rio de Janeiro", "", 4, models.PlatformUber},
		{"Belo Horizonte", "", 1, models.Platform99},
	}
	n := 0
	for _, s := range seed {
		for i := 0; i < s.count; i++ {
			n++
			loc := &models.Location{City: s.city, Neighborhood: s.hood}
			if err := agg.RecordOffer(ctx, offerAt(now.Add(-time.Duration(n)*time.Second), s.p, 17), loc, fmt.Sprintf("d%d", n)); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
	}

	top, err := agg.TopCities(ctx, 2, now)
	if err != nil {
		t.Fatalf("top cities: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	// São Paulo rolls up both neighborhoods (5) ahead of Rio (4).
	if top[0].City != "São Paulo" || top[0].Total != 5 {
		t.Fatalf("top[0] = %s/%d, want São Paulo/5", top[0].City, top[0].Total)
	}
	if top[0].Uber != 3 || top[0].Nine9 != 2 {
		t.Fatalf("top[0] platform split = %d/%d, want 3/2", top[0].Uber, top[0].Nine9)
	}
	if top[1].City != "Rio de Janeiro" || top[1].Total != 4 {
		t.Fatalf("top[1] = %s/%d, want Rio de Janeiro/4", top[1].City, top[1].Total)
	}
}

func TestTopCitiesTieBreaksOnName(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	now := testTime

	for i, city := range []string{"Osasco", "Campinas"} {
		loc := &models.Location{City: city}
		if err := agg.RecordOffer(ctx, offerAt(now.Add(-time.Minute), models.PlatformUber, 17), loc, fmt.Sprintf("d%d", i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	top, err := agg.TopCities(ctx, 0, now)
	if err != nil {
		t.Fatalf("top cities: %v", err)
	}
	if len(top) != 2 || top[0].City != "Campinas" || top[1].City != "Osasco" {
		t.Fatalf("tie order = %+v, want Campinas before Osasco", top)
	}
}

func TestTopNeighborhoodsFiltersCity(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	now := testTime

	seed := []struct {
		city, hood string
		count      int
	}{
		{"São Paulo", "Moema", 1},
		{"São Paulo", "Pinheiros", 3},
		{"Rio de Janeiro", "Copacabana", 5},
	}
	n := 0
	for _, s := range seed {
		for i := 0; i < s.count; i++ {
			n++
			loc := &models.Location{City: s.city, Neighborhood: s.hood}
			if err := agg.RecordOffer(ctx, offerAt(now.Add(-time.Minute), models.PlatformUber, 17), loc, fmt.Sprintf("d%d", n)); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
	}

	top, err := agg.TopNeighborhoods(ctx, "são paulo", 10, now)
	if err != nil {
		t.Fatalf("top neighborhoods: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2 (other cities excluded)", len(top))
	}
	if top[0].Neighborhood != "Pinheiros" || top[0].Total != 3 {
		t.Fatalf("top[0] = %s/%d, want Pinheiros/3", top[0].Neighborhood, top[0].Total)
	}
	if top[1].Neighborhood != "Moema" {
		t.Fatalf("top[1] = %s, want Moema", top[1].Neighborhood)
	}
}

func TestStatsWindows(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "Porto Alegre"}
	now := testTime // 14:35 UTC

	offsets := []struct {
		off time.Duration
		p   models.Platform
	}{
		{-30 * time.Minute, models.PlatformUber}, // last hour
		{-2 * time.Hour, models.Platform99},      // last 3h
		{-10 * time.Hour, models.PlatformUber},   // today (04:35), outside 3h
		{-20 * time.Hour, models.Platform99},     // yesterday
	}
	for i, o := range offsets {
		if err := agg.RecordOffer(ctx, offerAt(now.Add(o.off), o.p, 19), loc, fmt.Sprintf("d%d", i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	s, err := agg.Stats(ctx, "Porto Alegre", now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.LastHour.Total != 1 {
		t.Fatalf("last hour = %d, want 1", s.LastHour.Total)
	}
	if s.Last3Hrs.Total != 2 {
		t.Fatalf("last 3h = %d, want 2", s.Last3Hrs.Total)
	}
	if s.Today.Total != 3 {
		t.Fatalf("today = %d, want 3", s.Today.Total)
	}
	if s.Today.Uber != 2 || s.Today.Nine9 != 1 {
		t.Fatalf("today split = %d/%d, want 2/1", s.Today.Uber, s.Today.Nine9)
	}
}

func TestRestoreOffersNewestFirst(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()
	loc := &models.Location{City: "Manaus"}

	for i := 0; i < 4; i++ {
		price := 10.0 + float64(i)
		if err := agg.RecordOffer(ctx, offerAt(testTime.Add(time.Duration(i)*time.Minute), models.PlatformUber, price), loc, "driver-a"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := agg.RecordOffer(ctx, offerAt(testTime, models.PlatformUber, 99), loc, "driver-b"); err != nil {
		t.Fatalf("record: %v", err)
	}

	recs, err := agg.RestoreOffers(ctx, "driver-a", 3)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0].Price != 13 || recs[2].Price != 11 {
		t.Fatalf("order = %v, want newest first (13..11)", []float64{recs[0].Price, recs[1].Price, recs[2].Price})
	}
}

func TestDemandBucketJSONShape(t *testing.T) {
	b := &models.DemandBucket{}
	b.Reset(models.BucketStartFor(testTime))
	b.City = "São Paulo"
	b.Neighborhood = "Moema"
	b.CountOffer(models.PlatformUber)
	b.AddDriver("driver-b")
	b.AddDriver("driver-a")
	b.AddDriver("driver-b")

	if got := b.ActiveDrivers(); got != 2 {
		t.Fatalf("active drivers = %d, want 2", got)
	}
	if b.ActiveDriverIDs[0] != "driver-a" || b.ActiveDriverIDs[1] != "driver-b" {
		t.Fatalf("ids not sorted: %v", b.ActiveDriverIDs)
	}
	if b.BucketStart%models.BucketWidth.Milliseconds() != 0 {
		t.Fatalf("bucket start %d not aligned to %s", b.BucketStart, models.BucketWidth)
	}
}
