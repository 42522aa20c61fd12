package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/usecase"
	xhttp "github.com/n2ilva/MotoristaInteligente-sub003/pkg/http"
	xlogger "github.com/n2ilva/MotoristaInteligente-sub003/pkg/logger"
)

// DemandEchoHandler exposes the demand read paths and the manual ingest
// endpoint over HTTP.
type DemandEchoHandler struct {
	logger *xlogger.Logger
	reader *usecase.DemandReader
	proc   *usecase.ObservationProcessor
}

func NewDemandEchoHandler(logger *xlogger.Logger, reader *usecase.DemandReader, proc *usecase.ObservationProcessor) *DemandEchoHandler {
	return &DemandEchoHandler{logger: logger, reader: reader, proc: proc}
}

func (h *DemandEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/demand/top", h.TopRegions)
	g.GET("/demand/trend", h.Trend)
	g.GET("/demand/bucket", h.Bucket)
	g.GET("/demand/stats", h.RegionalStats)
	g.GET("/session/stats", h.SessionStats)
	g.POST("/session/accepted", h.AcceptOffer)
	g.POST("/observations", h.Observe)
}

// TopRegions ranks cities by recent offer volume, or one city's
// neighborhoods when ?city= is given.
func (h *DemandEchoHandler) TopRegions(c echo.Context) error {
	req := &models.TopRegionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	now := xhttp.ParseTimeDefault(req.At, time.Now())
	var (
		rows []models.RegionCount
		err  error
	)
	if req.City != "" {
		rows, err = h.reader.TopNeighborhoods(ctx, req.City, req.N, now)
	} else {
		rows, err = h.reader.TopCities(ctx, req.N, now)
	}
	if err != nil {
		h.logger.Error("top regions error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DemandEchoHandler) Trend(c echo.Context) error {
	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reader.Trend(c.Request().Context(), req.City, req.Neighborhood, xhttp.ParseTimeDefault(req.At, time.Now()))
	if err != nil {
		h.logger.Error("trend error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Bucket returns the live counter document for a region, 404 when no offer
// has been recorded there in the current window.
func (h *DemandEchoHandler) Bucket(c echo.Context) error {
	req := &models.BucketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	b, err := h.reader.Bucket(c.Request().Context(), req.City, req.Neighborhood)
	if err != nil {
		h.logger.Error("bucket read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if b == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no bucket for %s", req.City))
	}
	return xhttp.SuccessResponse(c, b)
}

func (h *DemandEchoHandler) RegionalStats(c echo.Context) error {
	req := &models.RegionalStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reader.Stats(c.Request().Context(), req.City, xhttp.ParseTimeDefault(req.At, time.Now()))
	if err != nil {
		h.logger.Error("regional stats error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DemandEchoHandler) SessionStats(c echo.Context) error {
	req := &models.SessionStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reader.SessionStats(c.Request().Context(), req.DriverID, time.Now())
	if err != nil {
		h.logger.Error("session stats error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// AcceptOffer marks the driver's most recent offer from the given platform
// as accepted. Idempotent: a repeat within the window flags the next older
// offer or reports accepted=false.
func (h *DemandEchoHandler) AcceptOffer(c echo.Context) error {
	req := &models.AcceptOfferRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ok := h.reader.MarkAccepted(req.DriverID, models.ParsePlatform(req.Platform), time.Now())
	return xhttp.SuccessResponse(c, map[string]bool{"accepted": ok})
}

// Observe feeds one raw observation through the pipeline, mostly for
// debugging and backfill.
func (h *DemandEchoHandler) Observe(c echo.Context) error {
	obs := &models.RawObservation{}
	if err := c.Bind(obs); err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	if obs.Text == "" {
		return xhttp.BadRequestResponse(c, "text is required")
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}

	offer, err := h.proc.Process(c.Request().Context(), obs)
	if err != nil {
		h.logger.Error("observation process error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if offer == nil {
		return xhttp.SuccessResponse(c, map[string]bool{"parsed": false})
	}
	return xhttp.CreatedResponse(c, offer)
}
