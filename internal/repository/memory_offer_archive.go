package repository

import (
	"context"
	"sync"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
)

// MemoryOfferArchive is an in-process OfferArchive for tests and
// infrastructure-free runs.
type MemoryOfferArchive struct {
	mu   sync.RWMutex
	recs []models.OfferRecord
}

// NewMemoryOfferArchive creates an empty archive.
func NewMemoryOfferArchive() *MemoryOfferArchive {
	return &MemoryOfferArchive{}
}

func (a *MemoryOfferArchive) Store(_ context.Context, rec *models.OfferRecord) error {
	if rec == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, *rec)
	return nil
}

func (a *MemoryOfferArchive) CountWindow(_ context.Context, city, neighborhood string, from, to time.Time) (models.WindowCount, error) {
	cityKey := models.NormalizeRegion(city)
	hoodKey := models.NormalizeRegion(neighborhood)
	var c models.WindowCount
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := range a.recs {
		r := &a.recs[i]
		if !inWindow(r.Timestamp, from, to) {
			continue
		}
		if models.NormalizeRegion(r.City) != cityKey {
			continue
		}
		if hoodKey != "" && models.NormalizeRegion(r.Neighborhood) != hoodKey {
			continue
		}
		countInto(&c, r.Platform)
	}
	return c, nil
}

func (a *MemoryOfferArchive) RegionCounts(_ context.Context, from, to time.Time) ([]models.RegionCount, error) {
	type key struct{ city, hood string }
	acc := make(map[key]*models.RegionCount)
	var order []key
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := range a.recs {
		r := &a.recs[i]
		if !inWindow(r.Timestamp, from, to) || r.City == "" {
			continue
		}
		k := key{models.NormalizeRegion(r.City), models.NormalizeRegion(r.Neighborhood)}
		row, ok := acc[k]
		if !ok {
			row = &models.RegionCount{City: r.City, Neighborhood: r.Neighborhood}
			acc[k] = row
			order = append(order, k)
		}
		countInto(&row.WindowCount, r.Platform)
	}
	out := make([]models.RegionCount, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out, nil
}

func (a *MemoryOfferArchive) RecentByDriver(_ context.Context, driverID string, limit int) ([]models.OfferRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []models.OfferRecord
	for i := len(a.recs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if a.recs[i].DriverID != driverID {
			continue
		}
		out = append(out, a.recs[i])
	}
	return out, nil
}

func (a *MemoryOfferArchive) Close() error { return nil }

func inWindow(ts, from, to time.Time) bool {
	return ts.After(from) && !ts.After(to)
}

func countInto(c *models.WindowCount, p models.Platform) {
	c.Total++
	switch p {
	case models.PlatformUber:
		c.Uber++
	case models.Platform99:
		c.Nine9++
	case models.PlatformUnknown:
	}
}

var _ domrepo.OfferArchive = (*MemoryOfferArchive)(nil)
