package api

import (
	"context"
	"errors"

	"Jarvis/internal/middleware"
	"Jarvis/internal/services/execution"
	"Jarvis/internal/services/market"
	"Jarvis/internal/usecase"
	xhttp "Jarvis/pkg/http"
)

// appError maps usecase failures onto API errors. Anything unknown stays a
// plain error and is answered with a 500.
func appError(err error) error {
	var unsafe *usecase.UnsafeError
	switch {
	case errors.As(err, &unsafe):
		return xhttp.ConflictError(unsafe.Error()).
			WithParam("state", unsafe.State).
			WithError(err)
	case errors.Is(err, usecase.ErrBacktestNotFound):
		return xhttp.NotFoundError("backtest not found").WithError(err)
	case errors.Is(err, middleware.ErrInvalidSample),
		errors.Is(err, middleware.ErrStaleSample),
		errors.Is(err, execution.ErrInvalidTransaction):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("upstream timed out").WithError(err)
	case market.NotFound(err):
		return xhttp.NotFoundError("not found upstream").WithError(err)
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return xhttp.BadGatewayError("upstream unavailable").WithError(err)
	}
	return err
}
