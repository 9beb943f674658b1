package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every API body. Status always equals the HTTP status.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Page is the data of list endpoints.
type Page struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

func DataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Status: status, Message: http.StatusText(status), Data: data})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, Page{Rows: rows, Total: total})
}

// BadRequestResponse answers 400 with validation details.
func BadRequestResponse(c echo.Context, details []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, details)
}

// AppErrorResponse answers with the status carried by an *AppError. Any other
// error is hidden behind a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var ae *AppError
	if errors.As(err, &ae) {
		return DataResponse(c, ae.Status, []*AppError{ae})
	}
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}
