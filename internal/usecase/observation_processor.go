package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	drepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/parser"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/regional"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/session"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/source"
)

// ObservationProcessor runs one raw screen observation through the whole
// demand pipeline: classify platform, extract offer fields, fold the result
// into the driver's session and the regional buckets, and fan the parsed
// offer out to the downstream topic.
// regionalWriteTimeout bounds the detached bucket/archive write.
const regionalWriteTimeout = 5 * time.Second

type ObservationProcessor struct {
	parser   *parser.FieldParser
	sessions *session.Registry
	regional *regional.Aggregator
	pub      drepo.OfferPublisher
	metrics  drepo.Metrics
	wg       sync.WaitGroup
}

// NewObservationProcessor creates a new ObservationProcessor instance. pub
// may be nil when downstream publishing is disabled.
func NewObservationProcessor(
	p *parser.FieldParser,
	sessions *session.Registry,
	reg *regional.Aggregator,
	pub drepo.OfferPublisher,
	metrics drepo.Metrics,
) *ObservationProcessor {
	return &ObservationProcessor{
		parser:   p,
		sessions: sessions,
		regional: reg,
		pub:      pub,
		metrics:  metrics,
	}
}

// Process parses one observation and distributes the result. A nil return
// with no error means the text held no usable offer, which is the common
// case for screen noise.
func (p *ObservationProcessor) Process(ctx context.Context, obs *models.RawObservation) (*models.ParsedOffer, error) {
	if obs == nil {
		return nil, fmt.Errorf("observation is nil")
	}
	start := time.Now()

	platform := source.Classify(obs.PackageID, obs.Text)
	offer := p.parser.Parse(obs, platform)
	if offer == nil {
		p.metrics.RecordParseMiss(platform.String())
		return nil, nil
	}
	p.metrics.RecordOfferParsed(platform.String())
	p.metrics.RecordLastPrice(platform.String(), offer.Price)

	if obs.DriverID != "" {
		p.sessions.ForDriver(obs.DriverID).RecordOffer(offer)
	}

	// detached from the stream: a slow or failed regional write must not
	// delay the next observation
	loc := obs.Location
	driverID := obs.DriverID
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		wctx, cancel := context.WithTimeout(context.Background(), regionalWriteTimeout)
		defer cancel()
		if err := p.regional.RecordOffer(wctx, offer, loc, driverID); err != nil {
			p.metrics.RecordError("regional")
		}
	}()

	var firstErr error
	if p.pub != nil {
		if err := p.pub.Publish(ctx, offer, obs.DriverID); err != nil {
			p.metrics.RecordError("publish")
			firstErr = fmt.Errorf("publish offer: %w", err)
		}
	}

	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return offer, firstErr
}

// Close waits for in-flight regional writes and closes the downstream
// publisher if one is attached.
func (p *ObservationProcessor) Close() {
	p.wg.Wait()
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
