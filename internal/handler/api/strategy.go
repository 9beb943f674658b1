package api

import (
	"net/http"

	models "Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	"Jarvis/internal/usecase"
	xhttp "Jarvis/pkg/http"
	xlogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StrategyHandler serves consensus, backtests and stored candles.
type StrategyHandler struct {
	logger    *xlogger.Logger
	strategy  *usecase.StrategyUseCase
	backtests *usecase.BacktestUseCase
	candles   *usecase.CandlesUseCase
}

func NewStrategyHandler(
	logger *xlogger.Logger,
	st *usecase.StrategyUseCase,
	bt *usecase.BacktestUseCase,
	candles *usecase.CandlesUseCase,
) *StrategyHandler {
	return &StrategyHandler{logger: logger, strategy: st, backtests: bt, candles: candles}
}

func (h *StrategyHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/strategies/consensus", h.Consensus)
	g.POST("/backtests", h.EnqueueBacktest)
	g.GET("/backtests", h.ListBacktests)
	g.GET("/backtests/:id", h.GetBacktest)
	g.GET("/candles/:pool", h.Candles)
}

// Consensus runs the aggregator on fresh candles. The pool joins the
// refresh set so websocket clients keep receiving updates for it.
func (h *StrategyHandler) Consensus(c echo.Context) error {
	req := &models.ConsensusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	res, err := h.strategy.Consensus(ctx, req.Pool, req.TF, req.N)
	if err != nil {
		h.logger.Error("consensus usecase error", xlogger.String("pool", req.Pool), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	h.strategy.Follow(req.Pool)
	h.strategy.Publish(ctx, res)
	if res.Demo {
		c.Response().Header().Set("X-Data-Source", "demo")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategyHandler) EnqueueBacktest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.backtests.Enqueue(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("backtest enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, rec)
}

func (h *StrategyHandler) ListBacktests(c echo.Context) error {
	req := &models.BacktestListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	recs, err := h.backtests.List(c.Request().Context(), req.Pool, req.Limit)
	if err != nil {
		h.logger.Error("backtest list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	if recs == nil {
		recs = []models.BacktestRecord{}
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *StrategyHandler) GetBacktest(c echo.Context) error {
	req := &models.BacktestIDParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.backtests.Get(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *StrategyHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Pool:      req.Pool,
		Timeframe: domrepo.Timeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
