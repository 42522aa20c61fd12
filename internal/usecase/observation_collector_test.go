package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// droppingStream fails its first read loop, then serves observations on the
// channels handed out after the re-dial.
type droppingStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	obs        *models.RawObservation
}

func (s *droppingStream) Connect(context.Context) error { return nil }

func (s *droppingStream) Read(context.Context) (<-chan *models.RawObservation, <-chan error) {
	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()

	obsCh := make(chan *models.RawObservation, 1)
	errCh := make(chan error, 1)
	if first {
		errCh <- fmt.Errorf("socket dropped")
		close(obsCh)
		close(errCh)
	} else {
		obsCh <- s.obs
	}
	return obsCh, errCh
}

func (s *droppingStream) Reconnect(context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

func (s *droppingStream) Close() error      { return nil }
func (s *droppingStream) IsConnected() bool { return true }

func (s *droppingStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func TestCollectorResumesAfterReconnect(t *testing.T) {
	proc, _, sessions, _ := newTestProcessor()
	stream := &droppingStream{
		obs: &models.RawObservation{
			Timestamp: time.Now(),
			DriverID:  "driver-b",
			PackageID: "com.ubercab.driver",
			Text:      "Aceitar corrida: R$ 22,00 · 6,0 km · 12 min",
		},
	}
	collector := NewObservationCollector(stream, proc, &stubMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := collector.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tracker, ok := sessions.Get("driver-b"); ok && len(tracker.Snapshots()) == 1 {
			if stream.reconnectCount() != 1 {
				t.Fatalf("reconnects = %d, want 1", stream.reconnectCount())
			}
			cancel()
			proc.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("observation after reconnect never reached the processor")
}
