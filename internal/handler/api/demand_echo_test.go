package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/regional"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/session"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/usecase"
	xlogger "github.com/n2ilva/MotoristaInteligente-sub003/pkg/logger"
)

func newTestServer(t *testing.T) (*echo.Echo, *regional.Aggregator) {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	sessions := session.NewRegistry(session.Config{})
	agg := regional.New(repository.NewMemoryBucketStore(), repository.NewMemoryOfferArchive(), nil, nil)
	reader := usecase.NewDemandReader(sessions, agg)

	e := echo.New()
	NewDemandEchoHandler(log, reader, nil).RegisterRoutes(e)
	return e, agg
}

func TestBucketEndpoint(t *testing.T) {
	e, agg := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/demand/bucket?city=Curitiba", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 envelope", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ERR_NOT_FOUND") {
		t.Fatalf("empty region should report not found, got %s", rec.Body.String())
	}

	offer := &models.ParsedOffer{Timestamp: time.Now(), Platform: models.PlatformUber, Price: 18.5}
	loc := &models.Location{City: "Curitiba", Neighborhood: "Batel"}
	if err := agg.RecordOffer(context.Background(), offer, loc, "driver-a"); err != nil {
		t.Fatalf("record offer: %v", err)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/demand/bucket?city=Curitiba", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"offersTotal":1`) || !strings.Contains(body, `"city":"Curitiba"`) {
		t.Fatalf("bucket body = %s, want one Curitiba offer", body)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/demand/bucket", nil))
	if !strings.Contains(rec.Body.String(), "ERR_REQUIRED") {
		t.Fatalf("missing city should fail validation, got %s", rec.Body.String())
	}
}
