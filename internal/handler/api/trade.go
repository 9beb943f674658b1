package api

import (
	models "Jarvis/internal/domain/models"
	"Jarvis/internal/usecase"
	xhttp "Jarvis/pkg/http"
	xlogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
)

type TradeHandler struct {
	logger *xlogger.Logger
	trade  *usecase.TradeUseCase
}

func NewTradeHandler(logger *xlogger.Logger, trade *usecase.TradeUseCase) *TradeHandler {
	return &TradeHandler{logger: logger, trade: trade}
}

func (h *TradeHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/trade")
	g.GET("/quote", h.Quote)
	g.POST("/submit", h.Submit)
}

func (h *TradeHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	q, err := h.trade.Quote(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("quote usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, q)
}

// Submit answers 409 with the gate state when the mint is not safe.
func (h *TradeHandler) Submit(c echo.Context) error {
	req := &models.SubmitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.trade.Submit(c.Request().Context(), *req)
	if err != nil {
		h.logger.Warn("submit refused", xlogger.String("mint", req.Mint), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
