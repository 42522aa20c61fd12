// Package regional merges offers from many drivers into shared 10-minute
// demand buckets and serves the regional read paths.
package regional

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/logger"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/util"
)

// Aggregator owns the write protocol for shared bucket documents and the
// counting read paths over archived offers. The bucket structure exists only
// for fast concurrent increments; statistics and trends read raw records.
type Aggregator struct {
	store   domrepo.BucketStore
	archive domrepo.OfferArchive
	metrics domrepo.Metrics
	log     *logger.Logger
}

// New creates a regional aggregator.
func New(store domrepo.BucketStore, archive domrepo.OfferArchive, metrics domrepo.Metrics, log *logger.Logger) *Aggregator {
	return &Aggregator{store: store, archive: archive, metrics: metrics, log: log}
}

// RecordOffer folds one offer into the city bucket and, when a neighborhood
// is known, the city+neighborhood bucket, then archives the raw record. An
// offer without a resolvable city is skipped silently: it still counts for
// the driver's session, just not regionally.
func (a *Aggregator) RecordOffer(ctx context.Context, offer *models.ParsedOffer, loc *models.Location, driverID string) error {
	if offer == nil || loc == nil || strings.TrimSpace(loc.City) == "" {
		return nil
	}
	bucketStart := models.BucketStartFor(offer.Timestamp)

	docs := []struct{ city, hood string }{{loc.City, ""}}
	if strings.TrimSpace(loc.Neighborhood) != "" {
		docs = append(docs, struct{ city, hood string }{loc.City, loc.Neighborhood})
	}

	var firstErr error
	for _, d := range docs {
		docID := models.RegionDocID(d.city, d.hood)
		city, hood := d.city, d.hood
		_, err := a.store.Update(ctx, docID, func(b *models.DemandBucket) {
			if b.BucketStart != bucketStart {
				// implicit rollover: stale counters belong to a
				// superseded window
				b.Reset(bucketStart)
			}
			b.City = city
			b.Neighborhood = hood
			b.CountOffer(offer.Platform)
			b.AddDriver(driverID)
			b.UpdatedAt = time.Now().UnixMilli()
		})
		if err != nil {
			if a.metrics != nil {
				a.metrics.RecordError("bucket_update")
			}
			if a.log != nil {
				a.log.Warn("bucket update failed", logger.String("doc", docID), logger.Error(err))
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("bucket %s: %w", docID, err)
			}
		}
	}

	rec := &models.OfferRecord{
		Timestamp:    offer.Timestamp,
		Platform:     offer.Platform,
		Price:        offer.Price,
		DistanceKm:   offer.DistanceKm,
		PickupKm:     offer.PickupDistanceKm,
		TimeMin:      int(offer.EstimatedTimeMin),
		Rating:       offer.Rating,
		City:         loc.City,
		Neighborhood: loc.Neighborhood,
		DriverID:     driverID,
	}
	if err := a.archive.Store(ctx, rec); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("archive offer: %w", err)
	}
	return firstErr
}

// Bucket returns the live counter document for a region, nil when none has
// been written yet in the current window.
func (a *Aggregator) Bucket(ctx context.Context, city, neighborhood string) (*models.DemandBucket, error) {
	docID := models.RegionDocID(city, neighborhood)
	if docID == "" {
		return nil, fmt.Errorf("city is required")
	}
	return a.store.Get(ctx, docID)
}

// Trend classifies the 120-minute offer-count direction for a region using
// three 30-minute sub-windows (the oldest one covering the remaining hour of
// lookback).
func (a *Aggregator) Trend(ctx context.Context, city, neighborhood string, now time.Time) (models.RegionalTrend, error) {
	t := models.RegionalTrend{City: city, Neighborhood: neighborhood}
	windows := []struct {
		from, to time.Duration
		dst      *int
	}{
		{120 * time.Minute, 60 * time.Minute, &t.Oldest},
		{60 * time.Minute, 30 * time.Minute, &t.Middle},
		{30 * time.Minute, 0, &t.Newest},
	}
	for _, w := range windows {
		c, err := a.archive.CountWindow(ctx, city, neighborhood, now.Add(-w.from), now.Add(-w.to))
		if err != nil {
			return t, fmt.Errorf("count window: %w", err)
		}
		*w.dst = c.Total
	}
	t.Trend = classifyTrend(t.Oldest, t.Middle, t.Newest)
	return t, nil
}

// classifyTrend is rising only when counts never decrease across the
// sub-windows and strictly grow overall; falling is the mirror.
func classifyTrend(oldest, middle, newest int) models.Trend {
	switch {
	case oldest <= middle && middle <= newest && newest > oldest:
		return models.TrendRising
	case oldest >= middle && middle >= newest && newest < oldest:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// TopCities ranks cities by their last-30-minute offer count, stable-sorted
// by name on ties, with per-platform sub-counts.
func (a *Aggregator) TopCities(ctx context.Context, n int, now time.Time) ([]models.RegionCount, error) {
	rows, err := a.archive.RegionCounts(ctx, now.Add(-30*time.Minute), now)
	if err != nil {
		return nil, fmt.Errorf("region counts: %w", err)
	}
	byCity := make(map[string]*models.RegionCount)
	var order []string
	for _, r := range rows {
		key := models.NormalizeRegion(r.City)
		c, ok := byCity[key]
		if !ok {
			c = &models.RegionCount{City: r.City}
			byCity[key] = c
			order = append(order, key)
		}
		c.Total += r.Total
		c.Uber += r.Uber
		c.Nine9 += r.Nine9
	}
	out := make([]models.RegionCount, 0, len(order))
	for _, key := range order {
		out = append(out, *byCity[key])
	}
	rankRegions(out)
	return truncate(out, n), nil
}

// TopNeighborhoods ranks a city's neighborhoods over the same window.
func (a *Aggregator) TopNeighborhoods(ctx context.Context, city string, n int, now time.Time) ([]models.RegionCount, error) {
	rows, err := a.archive.RegionCounts(ctx, now.Add(-30*time.Minute), now)
	if err != nil {
		return nil, fmt.Errorf("region counts: %w", err)
	}
	cityKey := models.NormalizeRegion(city)
	out := make([]models.RegionCount, 0)
	for _, r := range rows {
		if r.Neighborhood == "" || models.NormalizeRegion(r.City) != cityKey {
			continue
		}
		out = append(out, r)
	}
	rankRegions(out)
	return truncate(out, n), nil
}

// Stats runs the simple 1h/3h/today counting passes over raw records.
func (a *Aggregator) Stats(ctx context.Context, city string, now time.Time) (models.RegionalStats, error) {
	s := models.RegionalStats{City: city}
	midnight := util.DayStart(now)
	windows := []struct {
		from time.Time
		dst  *models.WindowCount
	}{
		{now.Add(-time.Hour), &s.LastHour},
		{now.Add(-3 * time.Hour), &s.Last3Hrs},
		{midnight, &s.Today},
	}
	for _, w := range windows {
		c, err := a.archive.CountWindow(ctx, city, "", w.from, now)
		if err != nil {
			return s, fmt.Errorf("count window: %w", err)
		}
		*w.dst = c
	}
	return s, nil
}

// RestoreOffers loads a driver's recent archived offers for session
// reseeding after a restart.
func (a *Aggregator) RestoreOffers(ctx context.Context, driverID string, limit int) ([]models.OfferRecord, error) {
	return a.archive.RecentByDriver(ctx, driverID, limit)
}

func rankRegions(rows []models.RegionCount) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		if rows[i].City != rows[j].City {
			return rows[i].City < rows[j].City
		}
		return rows[i].Neighborhood < rows[j].Neighborhood
	})
}

func truncate(rows []models.RegionCount, n int) []models.RegionCount {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
