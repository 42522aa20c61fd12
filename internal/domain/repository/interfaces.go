package repository

import (
	"context"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// ObservationStream is the transport feeding raw screen observations into
// the core. Observations arrive one at a time; the stream owns reconnects.
type ObservationStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.RawObservation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BucketStore holds the shared regional counter documents. Update applies
// the mutation as a single atomic read-modify-write; conflicting writers are
// resolved by the store's own optimistic retry, never by last-writer-wins.
type BucketStore interface {
	Update(ctx context.Context, docID string, apply func(*models.DemandBucket)) (*models.DemandBucket, error)
	Get(ctx context.Context, docID string) (*models.DemandBucket, error)
	Close() error
}

// OfferArchive stores the raw region-tagged offer records that back the
// statistics and trend read paths. Window queries count records with
// Timestamp in (from, to].
type OfferArchive interface {
	Store(ctx context.Context, rec *models.OfferRecord) error
	CountWindow(ctx context.Context, city, neighborhood string, from, to time.Time) (models.WindowCount, error)
	RegionCounts(ctx context.Context, from, to time.Time) ([]models.RegionCount, error)
	RecentByDriver(ctx context.Context, driverID string, limit int) ([]models.OfferRecord, error)
	Close() error
}

// OfferPublisher pushes parsed offers to the persistence/UI collaborator.
type OfferPublisher interface {
	Publish(ctx context.Context, offer *models.ParsedOffer, driverID string) error
	Close() error
}

// Metrics abstracts operational counters so usecases stay backend-free.
type Metrics interface {
	RecordOfferParsed(platform string)
	RecordParseMiss(platform string)
	RecordBucketConflict()
	RecordBucketDrop()
	RecordLastPrice(platform string, price float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
