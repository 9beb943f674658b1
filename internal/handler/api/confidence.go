package api

import (
	"time"

	models "Jarvis/internal/domain/models"
	"Jarvis/internal/middleware"
	"Jarvis/internal/usecase"
	xhttp "Jarvis/pkg/http"
	xlogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ConfidenceHandler exposes the per-mint gate. Manual samples go through
// the same ingest pipeline as polled and streamed ones.
type ConfidenceHandler struct {
	logger *xlogger.Logger
	conf   *usecase.ConfidenceUseCase
	ingest middleware.Proc
}

func NewConfidenceHandler(logger *xlogger.Logger, conf *usecase.ConfidenceUseCase, ingest middleware.Proc) *ConfidenceHandler {
	return &ConfidenceHandler{logger: logger, conf: conf, ingest: ingest}
}

func (h *ConfidenceHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/confidence", h.List)
	g.GET("/confidence/:mint", h.Get)
	g.POST("/confidence/samples", h.Sample)
}

func (h *ConfidenceHandler) List(c echo.Context) error {
	states := h.conf.Snapshot()
	return xhttp.ListResponse(c, states, int64(len(states)))
}

// Get answers loading for mints that never produced a sample.
func (h *ConfidenceHandler) Get(c echo.Context) error {
	req := &models.MintParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.conf.State(req.Mint))
}

func (h *ConfidenceHandler) Sample(c echo.Context) error {
	s := &models.PriceSample{}
	if verr := xhttp.ReadAndValidateRequest(c, s); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Samples posted here are operator input, stamped on arrival. They can
	// trip a breaker but not release one.
	s.Source = models.SourceManual
	s.At = time.Now().UTC()
	if err := h.ingest.Process(c.Request().Context(), *s); err != nil {
		h.logger.Warn("manual sample rejected", xlogger.String("mint", s.Mint), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, h.conf.State(s.Mint))
}
