package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	pkgch "github.com/n2ilva/MotoristaInteligente-sub003/pkg/clickhouse"
	applogger "github.com/n2ilva/MotoristaInteligente-sub003/pkg/logger"
)

// OffersSchema creates the raw offer archive table. Region keys are stored
// pre-normalized so window queries never depend on ClickHouse collation.
var OffersSchema = []string{
	`CREATE TABLE IF NOT EXISTS ride_offers (
        ts              DateTime64(3),
        driver_id       String,
        platform        LowCardinality(String),
        price           Float64,
        distance_km     Float64,
        pickup_km       Float64,
        time_min        UInt32,
        rating          Float64,
        city            String,
        city_key        String,
        neighborhood    String,
        neighborhood_key String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (city_key, neighborhood_key, ts)
    TTL toDateTime(ts) + INTERVAL 30 DAY`,
}

// CHOfferArchive implements OfferArchive backed by ClickHouse.
type CHOfferArchive struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHOfferArchive(ch *pkgch.Client) *CHOfferArchive {
	return &CHOfferArchive{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHOfferArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHOfferArchive) Store(ctx context.Context, rec *models.OfferRecord) error {
	const q = `
        INSERT INTO ride_offers
            (ts, driver_id, platform, price, distance_km, pickup_km, time_min, rating,
             city, city_key, neighborhood, neighborhood_key)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		rec.Timestamp,
		rec.DriverID,
		rec.Platform.String(),
		rec.Price,
		rec.DistanceKm,
		rec.PickupKm,
		uint32(rec.TimeMin),
		rec.Rating,
		rec.City,
		models.NormalizeRegion(rec.City),
		rec.Neighborhood,
		models.NormalizeRegion(rec.Neighborhood),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse offer insert error",
				applogger.String("driver_id", rec.DriverID),
				applogger.String("city", rec.City),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store offer: %w", err)
	}
	return nil
}

func (s *CHOfferArchive) CountWindow(ctx context.Context, city, neighborhood string, from, to time.Time) (models.WindowCount, error) {
	var (
		q    string
		args []any
	)
	cityKey := models.NormalizeRegion(city)
	if neighborhood != "" {
		q = `
            SELECT count(), countIf(platform = 'uber'), countIf(platform = '99')
            FROM ride_offers
            WHERE city_key = ? AND neighborhood_key = ? AND ts > ? AND ts <= ?
        `
		args = []any{cityKey, models.NormalizeRegion(neighborhood), from, to}
	} else {
		q = `
            SELECT count(), countIf(platform = 'uber'), countIf(platform = '99')
            FROM ride_offers
            WHERE city_key = ? AND ts > ? AND ts <= ?
        `
		args = []any{cityKey, from, to}
	}

	var wc models.WindowCount
	row := s.db.QueryRowContext(ctx, q, args...)
	if err := row.Scan(&wc.Total, &wc.Uber, &wc.Nine9); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse count_window error",
				applogger.String("city", city),
				applogger.String("neighborhood", neighborhood),
				applogger.Error(err),
			)
		}
		return models.WindowCount{}, fmt.Errorf("count window: %w", err)
	}
	return wc, nil
}

func (s *CHOfferArchive) RegionCounts(ctx context.Context, from, to time.Time) ([]models.RegionCount, error) {
	const q = `
        SELECT any(city), any(neighborhood),
               count(), countIf(platform = 'uber'), countIf(platform = '99')
        FROM ride_offers
        WHERE ts > ? AND ts <= ? AND city_key != ''
        GROUP BY city_key, neighborhood_key
    `
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse region_counts query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("region counts: %w", err)
	}
	defer rows.Close()

	out := make([]models.RegionCount, 0, 64)
	for rows.Next() {
		var rc models.RegionCount
		if err := rows.Scan(&rc.City, &rc.Neighborhood, &rc.Total, &rc.Uber, &rc.Nine9); err != nil {
			return nil, fmt.Errorf("scan region count: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHOfferArchive) RecentByDriver(ctx context.Context, driverID string, limit int) ([]models.OfferRecord, error) {
	const q = `
        SELECT ts, driver_id, platform, price, distance_km, pickup_km, time_min, rating,
               city, neighborhood
        FROM ride_offers
        WHERE driver_id = ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, driverID, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent_by_driver query error",
				applogger.String("driver_id", driverID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("recent by driver: %w", err)
	}
	defer rows.Close()

	out := make([]models.OfferRecord, 0, limit)
	for rows.Next() {
		var (
			rec      models.OfferRecord
			platform string
			timeMin  uint32
		)
		if err := rows.Scan(&rec.Timestamp, &rec.DriverID, &platform, &rec.Price,
			&rec.DistanceKm, &rec.PickupKm, &timeMin, &rec.Rating,
			&rec.City, &rec.Neighborhood); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		rec.Platform = models.ParsePlatform(platform)
		rec.TimeMin = int(timeMin)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Close is a no-op; the connection pool belongs to the shared client.
func (s *CHOfferArchive) Close() error { return nil }

var _ domrepo.OfferArchive = (*CHOfferArchive)(nil)
