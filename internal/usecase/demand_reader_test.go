package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/regional"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/session"
)

func newTestReader() (*DemandReader, *repository.MemoryOfferArchive, *regional.Aggregator) {
	metrics := &stubMetrics{}
	archive := repository.NewMemoryOfferArchive()
	agg := regional.New(repository.NewMemoryBucketStore(), archive, metrics, nil)
	return NewDemandReader(session.NewRegistry(session.Config{}), agg), archive, agg
}

func TestTopCitiesCacheKeyedByQueryTime(t *testing.T) {
	reader, archive, _ := newTestReader()
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 14, 35, 0, 0, time.UTC)

	rec := &models.OfferRecord{
		Timestamp: now.Add(-10 * time.Minute),
		Platform:  models.PlatformUber,
		Price:     20,
		City:      "Curitiba",
		DriverID:  "driver-a",
	}
	if err := archive.Store(ctx, rec); err != nil {
		t.Fatalf("seed archive: %v", err)
	}

	rows, err := reader.TopCities(ctx, 5, now)
	if err != nil {
		t.Fatalf("top cities: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("live ranking = %d rows, want 1", len(rows))
	}

	// a historical query must not be served the cached live ranking
	past, err := reader.TopCities(ctx, 5, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("top cities at past time: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("historical ranking = %d rows, want 0", len(past))
	}
}

func TestTopNeighborhoodsCacheKeyedByQueryTime(t *testing.T) {
	reader, archive, _ := newTestReader()
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 14, 35, 0, 0, time.UTC)

	rec := &models.OfferRecord{
		Timestamp:    now.Add(-10 * time.Minute),
		Platform:     models.Platform99,
		Price:        15,
		City:         "Curitiba",
		Neighborhood: "Batel",
		DriverID:     "driver-a",
	}
	if err := archive.Store(ctx, rec); err != nil {
		t.Fatalf("seed archive: %v", err)
	}

	rows, err := reader.TopNeighborhoods(ctx, "Curitiba", 5, now)
	if err != nil {
		t.Fatalf("top neighborhoods: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("live ranking = %d rows, want 1", len(rows))
	}

	past, err := reader.TopNeighborhoods(ctx, "Curitiba", 5, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("top neighborhoods at past time: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("historical ranking = %d rows, want 0", len(past))
	}
}
