package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAppErrorMessageKeptVerbatim(t *testing.T) {
	msg := "slippage 100% exceeds %d bps"
	for _, ae := range []*AppError{
		BadRequestError(msg),
		NotFoundError(msg),
		ConflictError(msg),
		BadGatewayError(msg),
		ServiceUnavailableError(msg),
	} {
		if ae.Message != msg {
			t.Fatalf("%s message = %q", ae.Code, ae.Message)
		}
	}
	if got := NewAppError(http.StatusTeapot, "x").Code; got != "ERR_418" {
		t.Fatalf("unmapped status code = %q", got)
	}
}

func TestAppErrorResponseRendersWrapped(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ae := ConflictError("gate tripped").WithParam("mint", "M").WithError(errors.New("ratio 0.05"))
	if err := AppErrorResponse(c, fmt.Errorf("submit: %w", ae)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) != 1 || body.Data[0].Code != "ERR_CONFLICT" || body.Data[0].Params["mint"] != "M" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
