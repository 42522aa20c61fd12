package usecase

import (
	"context"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	drepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
)

// ObservationCollector reads raw observations from the device stream and
// feeds them to the processor one at a time.
type ObservationCollector struct {
	stream  drepo.ObservationStream
	proc    *ObservationProcessor
	metrics drepo.Metrics
}

// NewObservationCollector creates a new ObservationCollector instance.
func NewObservationCollector(stream drepo.ObservationStream, proc *ObservationProcessor, metrics drepo.Metrics) *ObservationCollector {
	return &ObservationCollector{stream: stream, proc: proc, metrics: metrics}
}

// IsConnected returns true if the device stream is connected.
func (c *ObservationCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *ObservationCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	obsCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, obsCh, errCh)
	return nil
}

func (c *ObservationCollector) consume(ctx context.Context, obsCh <-chan *models.RawObservation, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, open := <-errCh:
			if err == nil && open {
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
			// the stream's read loop is gone; the old channels are dead
			// until a re-dial hands out fresh ones
			if rerr := c.stream.Reconnect(ctx); rerr != nil {
				c.metrics.RecordError("stream")
				continue
			}
			obsCh, errCh = c.stream.Read(ctx)
		case obs, open := <-obsCh:
			if !open {
				// block on errCh; it drives the reconnect
				obsCh = nil
				continue
			}
			if obs == nil {
				continue
			}
			_, _ = c.proc.Process(ctx, obs)
		}
	}
}

// Processor returns the underlying ObservationProcessor for lifecycle
// management.
func (c *ObservationCollector) Processor() *ObservationProcessor { return c.proc }

// Shutdown closes the stream.
func (c *ObservationCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
