package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	pkgkafka "github.com/n2ilva/MotoristaInteligente-sub003/pkg/kafka"
)

// KafkaObservationsHandler consumes raw observation messages from Kafka and
// runs them through the processor. Used when the capture layer ships screen
// events through a broker instead of a direct socket.
type KafkaObservationsHandler struct {
	topic   string
	proc    *ObservationProcessor
	metrics domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, proc *ObservationProcessor, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var obs models.RawObservation
	if err := json.Unmarshal(b, &obs); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}
	// E2E latency from capture time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(obs.Timestamp).Seconds())

	if _, err := h.proc.Process(ctx, &obs); err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
