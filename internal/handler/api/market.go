package api

import (
	models "Jarvis/internal/domain/models"
	"Jarvis/internal/services/datasource"
	"Jarvis/internal/usecase"
	xhttp "Jarvis/pkg/http"
	xlogger "Jarvis/pkg/logger"
	"Jarvis/pkg/util"

	"github.com/labstack/echo/v4"
)

type SourceStatus interface {
	Status() datasource.Status
}

// MarketHandler serves token data for the terminal panels.
type MarketHandler struct {
	logger    *xlogger.Logger
	market    *usecase.MarketUseCase
	dashboard *usecase.DashboardUseCase
	source    SourceStatus
}

func NewMarketHandler(
	logger *xlogger.Logger,
	market *usecase.MarketUseCase,
	dashboard *usecase.DashboardUseCase,
	source SourceStatus,
) *MarketHandler {
	return &MarketHandler{logger: logger, market: market, dashboard: dashboard, source: source}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/market/:mint", h.TokenMarket)
	g.GET("/sentiment", h.Sentiment)
	g.GET("/graduations", h.Graduations)
	g.GET("/dashboard/:mint", h.Dashboard)
	g.GET("/datasource", h.DataSource)
}

func (h *MarketHandler) TokenMarket(c echo.Context) error {
	req := &models.MintParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.TokenMarket(c.Request().Context(), req.Mint)
	if err != nil {
		h.logger.Error("market usecase error", xlogger.String("mint", req.Mint), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Sentiment(c echo.Context) error {
	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mints := util.SplitCSV(req.Mints)
	if len(mints) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("mints must list at least one mint"))
	}
	for _, m := range mints {
		if verr := xhttp.ValidateStruct(&models.MintParam{Mint: m}); verr != nil {
			return xhttp.BadRequestResponse(c, verr)
		}
	}
	res, err := h.market.Sentiment(c.Request().Context(), mints)
	if err != nil {
		h.logger.Error("sentiment usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *MarketHandler) Graduations(c echo.Context) error {
	req := &models.GraduationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Graduations(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("graduations usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

// Dashboard always answers 200 once the mint is valid; failed parts are
// reported in the errors map of the snapshot.
func (h *MarketHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.dashboard.Snapshot(c.Request().Context(), usecase.DashboardParams{
		Mint: req.Mint,
		Pool: req.Pool,
		TF:   req.TF,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) DataSource(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.source.Status())
}
