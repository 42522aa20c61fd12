package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/regional"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/service/cache"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/session"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/util"
)

// restoreLimit caps how many archived offers are pulled back into an empty
// session buffer after a restart.
const restoreLimit = 200

// rankingTTL bounds staleness of the cached top-region rankings.
const rankingTTL = 15 * time.Second

// DemandReader serves the read paths: per-driver session statistics and the
// regional demand views. It is the only consumer of the session registry
// outside the ingest path.
type DemandReader struct {
	sessions *session.Registry
	regional *regional.Aggregator
	rankings *cache.TTLCache
}

// NewDemandReader creates a new DemandReader instance.
func NewDemandReader(sessions *session.Registry, reg *regional.Aggregator) *DemandReader {
	return &DemandReader{sessions: sessions, regional: reg, rankings: cache.NewTTLCache()}
}

// SessionStats computes the live statistics for one driver. A driver whose
// tracker is empty gets a best-effort reseed from the offer archive first,
// so stats survive a process restart.
func (r *DemandReader) SessionStats(ctx context.Context, driverID string, now time.Time) (models.SessionStats, error) {
	tracker := r.sessions.ForDriver(driverID)
	if len(tracker.Snapshots()) == 0 {
		recs, err := r.regional.RestoreOffers(ctx, driverID, restoreLimit)
		if err == nil && len(recs) > 0 {
			tracker.RestoreFromExternal(offersFromRecords(recs))
		}
	}
	return tracker.ComputeStats(now), nil
}

// MarkAccepted flags the driver's most recent offer from the given platform
// as accepted. Returns false when no offer is recent enough.
func (r *DemandReader) MarkAccepted(driverID string, platform models.Platform, now time.Time) bool {
	tracker, ok := r.sessions.Get(driverID)
	if !ok {
		return false
	}
	return tracker.MarkLatestAccepted(platform, now)
}

// EndSession closes a driver's tracking session.
func (r *DemandReader) EndSession(driverID string) {
	r.sessions.End(driverID)
}

// TopCities returns the busiest cities over the last 30 minutes. Results
// are cached briefly, keyed by the aligned query time so historical reads
// never collide with the live ranking.
func (r *DemandReader) TopCities(ctx context.Context, n int, now time.Time) ([]models.RegionCount, error) {
	key := fmt.Sprintf("top:cities:%d:%d", n, util.AlignToBucket(now, rankingTTL).Unix())
	if v, ok := r.rankings.Get(key); ok {
		return v.([]models.RegionCount), nil
	}
	rows, err := r.regional.TopCities(ctx, n, now)
	if err != nil {
		return nil, err
	}
	r.rankings.Set(key, rows, rankingTTL)
	return rows, nil
}

// TopNeighborhoods returns the busiest neighborhoods of one city.
func (r *DemandReader) TopNeighborhoods(ctx context.Context, city string, n int, now time.Time) ([]models.RegionCount, error) {
	key := fmt.Sprintf("top:hoods:%s:%d:%d", models.NormalizeRegion(city), n, util.AlignToBucket(now, rankingTTL).Unix())
	if v, ok := r.rankings.Get(key); ok {
		return v.([]models.RegionCount), nil
	}
	rows, err := r.regional.TopNeighborhoods(ctx, city, n, now)
	if err != nil {
		return nil, err
	}
	r.rankings.Set(key, rows, rankingTTL)
	return rows, nil
}

// Trend returns the 120-minute demand direction for a region.
func (r *DemandReader) Trend(ctx context.Context, city, neighborhood string, now time.Time) (models.RegionalTrend, error) {
	return r.regional.Trend(ctx, city, neighborhood, now)
}

// Stats returns the 1h/3h/today offer counts for a city.
func (r *DemandReader) Stats(ctx context.Context, city string, now time.Time) (models.RegionalStats, error) {
	return r.regional.Stats(ctx, city, now)
}

// Bucket returns the live counter document for a region.
func (r *DemandReader) Bucket(ctx context.Context, city, neighborhood string) (*models.DemandBucket, error) {
	return r.regional.Bucket(ctx, city, neighborhood)
}

func offersFromRecords(recs []models.OfferRecord) []*models.ParsedOffer {
	out := make([]*models.ParsedOffer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &models.ParsedOffer{
			Timestamp:  rec.Timestamp,
			Platform:   rec.Platform,
			Price:      rec.Price,
			DistanceKm: rec.DistanceKm,
			Rating:     rec.Rating,
		})
	}
	return out
}
