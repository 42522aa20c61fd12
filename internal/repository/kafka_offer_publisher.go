package repository

import (
	"context"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	pkgkafka "github.com/n2ilva/MotoristaInteligente-sub003/pkg/kafka"
)

// offerEvent is the wire shape published for each parsed offer. Downstream
// consumers (pricing, notification) depend on these field names.
type offerEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	DriverID   string    `json:"driver_id"`
	Platform   string    `json:"platform"`
	Price      float64   `json:"price"`
	DistanceKm float64   `json:"distance_km,omitempty"`
	PickupKm   float64   `json:"pickup_km,omitempty"`
	TimeMin    float64   `json:"time_min,omitempty"`
	Rating     float64   `json:"rating,omitempty"`
	Score      int       `json:"score"`
}

// KafkaOfferPublisher fans parsed offers out to a Kafka topic, keyed by
// driver id so one driver's offers stay ordered within a partition.
type KafkaOfferPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaOfferPublisher(producer *pkgkafka.Producer, topic string) *KafkaOfferPublisher {
	if topic == "" {
		topic = "ride.offers.parsed"
	}
	return &KafkaOfferPublisher{producer: producer, topic: topic}
}

func (p *KafkaOfferPublisher) Publish(ctx context.Context, offer *models.ParsedOffer, driverID string) error {
	ev := offerEvent{
		Timestamp:  offer.Timestamp,
		DriverID:   driverID,
		Platform:   offer.Platform.String(),
		Price:      offer.Price,
		DistanceKm: offer.DistanceKm,
		PickupKm:   offer.PickupDistanceKm,
		TimeMin:    offer.EstimatedTimeMin,
		Rating:     offer.Rating,
		Score:      offer.ExtractionScore,
	}
	return p.producer.Publish(ctx, p.topic, []byte(driverID), ev)
}

func (p *KafkaOfferPublisher) Close() error { return p.producer.Close() }

var _ domrepo.OfferPublisher = (*KafkaOfferPublisher)(nil)
