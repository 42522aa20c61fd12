package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/parser"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/regional"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/session"
)

type stubMetrics struct {
	parsed int
	missed int
	errors int
}

func (m *stubMetrics) RecordOfferParsed(string)        { m.parsed++ }
func (m *stubMetrics) RecordParseMiss(string)          { m.missed++ }
func (m *stubMetrics) RecordBucketConflict()           {}
func (m *stubMetrics) RecordBucketDrop()               {}
func (m *stubMetrics) RecordLastPrice(string, float64) {}
func (m *stubMetrics) RecordLatency(string, float64)   {}
func (m *stubMetrics) RecordError(string)              { m.errors++ }

func newTestProcessor() (*ObservationProcessor, *stubMetrics, *session.Registry, *regional.Aggregator) {
	metrics := &stubMetrics{}
	sessions := session.NewRegistry(session.Config{})
	agg := regional.New(repository.NewMemoryBucketStore(), repository.NewMemoryOfferArchive(), metrics, nil)
	proc := NewObservationProcessor(parser.New(parser.Config{}), sessions, agg, nil, metrics)
	return proc, metrics, sessions, agg
}

func TestProcessDistributesOffer(t *testing.T) {
	proc, metrics, sessions, agg := newTestProcessor()
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 14, 35, 0, 0, time.UTC)

	obs := &models.RawObservation{
		Timestamp: now,
		DriverID:  "driver-a",
		PackageID: "com.ubercab.driver",
		Text:      "Aceitar corrida: R$ 18,50 · 5,2 km · 14 min",
		Location:  &models.Location{City: "São Paulo", Neighborhood: "Moema"},
	}

	offer, err := proc.Process(ctx, obs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if offer == nil {
		t.Fatal("offer not parsed")
	}
	if offer.Platform != models.PlatformUber {
		t.Fatalf("platform = %s, want uber", offer.Platform)
	}
	if offer.Price != 18.50 {
		t.Fatalf("price = %v, want 18.50", offer.Price)
	}
	if metrics.parsed != 1 || metrics.missed != 0 {
		t.Fatalf("metrics parsed/missed = %d/%d, want 1/0", metrics.parsed, metrics.missed)
	}

	tracker, ok := sessions.Get("driver-a")
	if !ok {
		t.Fatal("session tracker not created")
	}
	if n := len(tracker.Snapshots()); n != 1 {
		t.Fatalf("buffered offers = %d, want 1", n)
	}

	// waits for the detached regional write
	proc.Close()

	b, err := agg.Bucket(ctx, "São Paulo", "Moema")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	if b == nil || b.OffersTotal != 1 || b.ActiveDrivers() != 1 {
		t.Fatalf("regional bucket = %+v, want 1 offer from 1 driver", b)
	}
}

func TestProcessNoiseIsSilent(t *testing.T) {
	proc, metrics, sessions, _ := newTestProcessor()
	ctx := context.Background()

	obs := &models.RawObservation{
		Timestamp: time.Now(),
		DriverID:  "driver-a",
		PackageID: "com.ubercab.driver",
		Text:      "Você está offline. Toque para ficar online.",
	}
	offer, err := proc.Process(ctx, obs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if offer != nil {
		t.Fatalf("offer = %+v, want nil for noise", offer)
	}
	if metrics.missed != 1 {
		t.Fatalf("parse misses = %d, want 1", metrics.missed)
	}
	if tracker, ok := sessions.Get("driver-a"); ok && len(tracker.Snapshots()) != 0 {
		t.Fatal("noise must not enter the session buffer")
	}
}

func TestSessionStatsRestoresFromArchive(t *testing.T) {
	metrics := &stubMetrics{}
	sessions := session.NewRegistry(session.Config{})
	archive := repository.NewMemoryOfferArchive()
	agg := regional.New(repository.NewMemoryBucketStore(), archive, metrics, nil)
	reader := NewDemandReader(sessions, agg)

	ctx := context.Background()
	now := time.Date(2025, 3, 12, 14, 35, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &models.OfferRecord{
			Timestamp:  now.Add(-time.Duration(i+1) * time.Minute),
			Platform:   models.PlatformUber,
			Price:      20,
			DistanceKm: 5,
			City:       "Curitiba",
			DriverID:   "driver-a",
		}
		if err := archive.Store(ctx, rec); err != nil {
			t.Fatalf("seed archive: %v", err)
		}
	}

	stats, err := reader.SessionStats(ctx, "driver-a", now)
	if err != nil {
		t.Fatalf("session stats: %v", err)
	}
	if stats.BufferedOffers != 3 {
		t.Fatalf("buffered offers = %d, want 3 restored", stats.BufferedOffers)
	}
	if stats.RidesLast15Min != 3 {
		t.Fatalf("rides 15min = %d, want 3", stats.RidesLast15Min)
	}
}

func TestMarkAcceptedUnknownDriver(t *testing.T) {
	metrics := &stubMetrics{}
	sessions := session.NewRegistry(session.Config{})
	agg := regional.New(repository.NewMemoryBucketStore(), repository.NewMemoryOfferArchive(), metrics, nil)
	reader := NewDemandReader(sessions, agg)

	if reader.MarkAccepted("ghost", models.PlatformUber, time.Now()) {
		t.Fatal("accepted an offer for a driver with no session")
	}
}
