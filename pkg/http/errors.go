package http

import (
	"net/http"
	"strconv"
)

// AppError is an error the API is allowed to show to callers.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{}, 1)
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "ERR_BAD_REQUEST",
	http.StatusNotFound:            "ERR_NOT_FOUND",
	http.StatusConflict:            "ERR_CONFLICT",
	http.StatusBadGateway:          "ERR_UPSTREAM",
	http.StatusServiceUnavailable:  "ERR_UNAVAILABLE",
	http.StatusInternalServerError: "ERR_INTERNAL",
}

// NewAppError builds an error for status; the code is derived from it.
func NewAppError(status int, message string) *AppError {
	code, ok := errorCodes[status]
	if !ok {
		code = "ERR_" + strconv.Itoa(status)
	}
	return &AppError{Code: code, Message: message, Status: status}
}

func BadRequestError(msg string) *AppError { return NewAppError(http.StatusBadRequest, msg) }
func NotFoundError(msg string) *AppError   { return NewAppError(http.StatusNotFound, msg) }
func ConflictError(msg string) *AppError   { return NewAppError(http.StatusConflict, msg) }

// BadGatewayError reports a failed upstream call.
func BadGatewayError(msg string) *AppError { return NewAppError(http.StatusBadGateway, msg) }

func ServiceUnavailableError(msg string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, msg)
}
