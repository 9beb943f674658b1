package api

import (
	models "Jarvis/internal/domain/models"
	"Jarvis/internal/usecase"
	xhttp "Jarvis/pkg/http"
	xlogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StateHandler reads and writes the terminal's persisted blobs.
type StateHandler struct {
	logger *xlogger.Logger
	state  *usecase.StateUseCase
}

func NewStateHandler(logger *xlogger.Logger, st *usecase.StateUseCase) *StateHandler {
	return &StateHandler{logger: logger, state: st}
}

func (h *StateHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/state")
	g.GET("/positions", h.Positions)
	g.PUT("/positions", h.SavePositions)
	g.GET("/snipes", h.Snipes)
	g.POST("/snipes", h.AddSnipe)
	g.GET("/algo", h.Algo)
	g.PUT("/algo", h.SaveAlgo)
	g.GET("/picks", h.Picks)
	g.POST("/picks", h.AddPick)
}

// Positions marks every position to the current market price.
func (h *StateHandler) Positions(c echo.Context) error {
	ps, err := h.state.MarkedPositions(c.Request().Context())
	if err != nil {
		h.logger.Error("positions load error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, ps, int64(len(ps)))
}

func (h *StateHandler) SavePositions(c echo.Context) error {
	req := &models.PositionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ps, err := h.state.SavePositions(c.Request().Context(), req.Positions)
	if err != nil {
		h.logger.Error("positions save error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, ps, int64(len(ps)))
}

func (h *StateHandler) Snipes(c echo.Context) error {
	recs, err := h.state.Snipes(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *StateHandler) AddSnipe(c echo.Context) error {
	req := &models.SnipeRecord{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.state.AddSnipe(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("snipe save error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.CreatedResponse(c, rec)
}

func (h *StateHandler) Algo(c echo.Context) error {
	cfg, err := h.state.AlgoConfig(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *StateHandler) SaveAlgo(c echo.Context) error {
	req := &models.AlgoConfig{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.state.SaveAlgoConfig(c.Request().Context(), *req); err != nil {
		h.logger.Error("algo config save error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, req)
}

func (h *StateHandler) Picks(c echo.Context) error {
	ps, err := h.state.Picks(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, ps, int64(len(ps)))
}

func (h *StateHandler) AddPick(c echo.Context) error {
	req := &models.PickPerformance{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.state.AddPick(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("pick save error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.CreatedResponse(c, p)
}
