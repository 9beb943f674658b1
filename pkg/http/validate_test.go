package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type quoteQuery struct {
	Mint     string  `query:"mint" validate:"required,mint"`
	Amount   float64 `query:"amount" validate:"gt=0"`
	Slippage int     `query:"slippage_bps" default:"50" validate:"gte=1,lte=5000"`
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?mint=So11111111111111111111111111111111111111112&amount=1.5", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	q := &quoteQuery{}
	if verr := ReadAndValidateRequest(c, q); verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if q.Slippage != 50 {
		t.Fatalf("expected default slippage 50, got %d", q.Slippage)
	}
}

func TestReadAndValidateRequestRejectsBadMint(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?mint=0OIl&amount=1", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	verr := ReadAndValidateRequest(c, &quoteQuery{})
	errs := verr
	if len(errs) != 1 {
		t.Fatalf("expected one validation error, got %#v", verr)
	}
	if errs[0].Code != "ERR_MINT" || errs[0].Field != "Mint" {
		t.Fatalf("unexpected error %+v", errs[0])
	}
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	errs := ReadAndValidateRequest(c, &quoteQuery{})
	if len(errs) != 1 || errs[0].Code != "ERR_MALFORMED" {
		t.Fatalf("got %+v", errs)
	}
}

func TestValidateStructMessages(t *testing.T) {
	errs := ValidateStruct(&quoteQuery{Mint: "So11111111111111111111111111111111111111112", Amount: 1, Slippage: 9000})
	if len(errs) != 1 {
		t.Fatalf("got %+v", errs)
	}
	if errs[0].Message != "Slippage must be 5000 or less" || errs[0].Param != "5000" {
		t.Fatalf("unexpected %+v", errs[0])
	}
}
