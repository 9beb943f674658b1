package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "Jarvis/internal/domain/models"
	"Jarvis/internal/middleware"
	"Jarvis/internal/repository"
	"Jarvis/internal/service/ratelimit"
	"Jarvis/internal/services/confidence"
	"Jarvis/internal/services/datasource"
	"Jarvis/internal/services/market"
	"Jarvis/internal/services/state"
	"Jarvis/internal/services/strategy"
	"Jarvis/internal/usecase"
	"Jarvis/pkg/cache"
	xhttp "Jarvis/pkg/http"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/metrics"

	"github.com/labstack/echo/v4"
)

const (
	testMint = "So11111111111111111111111111111111111111112"
	testPool = "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"
)

type fakeExec struct{ calls int }

func (f *fakeExec) Submit(_ context.Context, _ string, useJito bool) (models.SubmitResult, error) {
	f.calls++
	route := "rpc"
	if useJito {
		route = "jito"
	}
	return models.SubmitResult{Signature: "SIG", Route: route, SubmittedAt: time.Now()}, nil
}

type fakeQuotes struct{}

func (fakeQuotes) Quote(_ context.Context, req models.QuoteRequest) (models.Quote, error) {
	return models.Quote{InputMint: req.InputMint, OutputMint: req.OutputMint, OutAmount: "42", SlippageBps: req.SlippageBps}, nil
}

type fixture struct {
	e         *echo.Echo
	conf      *usecase.ConfidenceUseCase
	ingest    *middleware.SamplePipeline
	backtests *usecase.BacktestUseCase
	exec      *fakeExec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := logger.Nop()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	sel := datasource.NewSelector(nil, nil, market.NewDemo(), true, l)
	candles := repository.NewMemoryCandleStore(0)
	st := usecase.NewStrategyUseCase(sel, strategy.NewAggregator(), candles, repository.NopPublisher{}, nil,
		metrics.Nop{}, l, usecase.StrategyConfig{Timeframe: "15m", Candles: 100})
	bt := usecase.NewBacktestUseCase(st, repository.NewMemoryBacktestStore(0), mc, nil,
		repository.NopPublisher{}, metrics.Nop{}, l)

	reg, err := confidence.NewRegistry(confidence.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	conf := usecase.NewConfidenceUseCase(reg, repository.NopPublisher{}, nil, nil, metrics.Nop{}, l)
	ingest := middleware.NewSamplePipeline(conf, metrics.Nop{}, middleware.WithMaxRPS(1_000_000_000))
	mkt := usecase.NewMarketUseCase(sel, mc, time.Minute, l)
	store := state.NewStore(mc, l)
	exec := &fakeExec{}
	trade := usecase.NewTradeUseCase(fakeQuotes{}, exec, conf, store, metrics.Nop{}, l, false)

	e := echo.New()
	for _, h := range []xhttp.Handler{
		NewStrategyHandler(l, st, bt, usecase.NewCandlesUseCase(candles)),
		NewConfidenceHandler(l, conf, ingest),
		NewMarketHandler(l, mkt, usecase.NewDashboardUseCase(mkt, st, conf), sel),
		NewStateHandler(l, usecase.NewStateUseCase(store, mkt, l)),
		NewTradeHandler(l, trade),
	} {
		h.RegisterRoutes(e)
	}
	return &fixture{e: e, conf: conf, ingest: ingest, backtests: bt, exec: exec}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var env struct {
		Status int         `json:"status"`
		Data   interface{} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, target, rec.Body.String(), err)
	}
	if env.Status != rec.Code {
		t.Fatalf("%s %s: envelope status %d, http %d", method, target, env.Status, rec.Code)
	}
	data, _ := env.Data.(map[string]interface{})
	return rec, data
}

func TestConsensusEndpoint(t *testing.T) {
	f := newFixture(t)

	rec, data := f.do(t, http.MethodGet, "/api/strategies/consensus?pool="+testPool+"&tf=15m&n=80", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Data-Source") != "demo" || data["demo"] != true {
		t.Fatalf("demo candles must be flagged: header %q body %v", rec.Header().Get("X-Data-Source"), data["demo"])
	}
	if results, _ := data["results"].([]interface{}); len(results) != len(strategy.Default()) {
		t.Fatalf("results = %v", data["results"])
	}

	for _, target := range []string{
		"/api/strategies/consensus?pool=not-a-mint",
		"/api/strategies/consensus?pool=" + testPool + "&tf=7m",
		"/api/strategies/consensus?pool=" + testPool + "&n=5",
	} {
		if rec, _ := f.do(t, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", target, rec.Code)
		}
	}
}

func TestBacktestEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, data := f.do(t, http.MethodPost, "/api/backtests", `{"pool":"`+testPool+`","tf":"1h","n":60}`)
	if rec.Code != http.StatusAccepted || data["status"] != string(models.BacktestQueued) {
		t.Fatalf("enqueue: %d %s", rec.Code, rec.Body.String())
	}
	id, _ := data["id"].(string)
	f.backtests.Wait()

	rec, data = f.do(t, http.MethodGet, "/api/backtests/"+id, "")
	if rec.Code != http.StatusOK || data["status"] != string(models.BacktestDone) {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	rec, data = f.do(t, http.MethodGet, "/api/backtests?pool="+testPool, "")
	if rec.Code != http.StatusOK || data["total"] != float64(1) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	if rec, _ := f.do(t, http.MethodGet, "/api/backtests/6f1c0c55-3b8e-4c1f-9d0a-2b7f0f3f5a11", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/backtests/nope", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: %d", rec.Code)
	}
}

func TestConfidenceEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, data := f.do(t, http.MethodGet, "/api/confidence/"+testMint, "")
	if rec.Code != http.StatusOK || data["tier"] != string(models.TierLoading) || data["is_safe_to_trade"] != false {
		t.Fatalf("unknown mint: %d %s", rec.Code, rec.Body.String())
	}

	body := `{"mint":"` + testMint + `","price":100,"confidence":0.1,"source":"quoted","reliable":true}`
	rec, data = f.do(t, http.MethodPost, "/api/confidence/samples", body)
	if rec.Code != http.StatusOK || data["tier"] != string(models.TierTight) || data["is_safe_to_trade"] != true {
		t.Fatalf("tight sample: %d %s", rec.Code, rec.Body.String())
	}

	if data["source"] != string(models.SourceManual) {
		t.Fatalf("posted samples are manual, got %v", data["source"])
	}

	// An unreliable manual sample still trips.
	body = `{"mint":"` + testMint + `","price":100,"confidence":0.1,"reliable":false}`
	rec, data = f.do(t, http.MethodPost, "/api/confidence/samples", body)
	if rec.Code != http.StatusOK || data["is_tripped"] != true {
		t.Fatalf("unreliable sample: %d %s", rec.Code, rec.Body.String())
	}

	if rec, _ := f.do(t, http.MethodPost, "/api/confidence/samples", `{"mint":"`+testMint+`","price":-1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative price: %d", rec.Code)
	}
	rec, data = f.do(t, http.MethodGet, "/api/confidence", "")
	if rec.Code != http.StatusOK || data["total"] != float64(1) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
}

func TestManualSampleCannotReleaseBreaker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wide := models.PriceSample{Mint: testMint, Price: 1, Confidence: 0.05, Source: models.SourceQuoted, Reliable: true, At: time.Now()}
	if err := f.ingest.Process(ctx, wide); err != nil {
		t.Fatal(err)
	}
	if st := f.conf.State(testMint); !st.IsTripped {
		t.Fatalf("wide band should trip: %+v", st)
	}

	calm := `{"mint":"` + testMint + `","price":1,"confidence":0.001,"source":"quoted","reliable":true}`
	rec, data := f.do(t, http.MethodPost, "/api/confidence/samples", calm)
	if rec.Code != http.StatusOK || data["is_tripped"] != true || data["is_safe_to_trade"] != false {
		t.Fatalf("manual calm sample released the breaker: %d %s", rec.Code, rec.Body.String())
	}

	submit := `{"mint":"` + testMint + `","transaction":"AQID"}`
	if rec, _ := f.do(t, http.MethodPost, "/api/trade/submit", submit); rec.Code != http.StatusConflict || f.exec.calls != 0 {
		t.Fatalf("submit while tripped: %d calls=%d", rec.Code, f.exec.calls)
	}

	oracle := models.PriceSample{Mint: testMint, Price: 1, Confidence: 0.001, Source: models.SourceQuoted, Reliable: true, At: time.Now()}
	if err := f.ingest.Process(ctx, oracle); err != nil {
		t.Fatal(err)
	}
	if st := f.conf.State(testMint); st.IsTripped || !st.IsSafeToTrade {
		t.Fatalf("oracle sample should release: %+v", st)
	}
}

func TestPostedSampleStampIgnored(t *testing.T) {
	f := newFixture(t)

	body := `{"mint":"` + testMint + `","price":1,"confidence":0.001,"reliable":true,"at":"2100-01-01T00:00:00Z"}`
	if rec, _ := f.do(t, http.MethodPost, "/api/confidence/samples", body); rec.Code != http.StatusOK {
		t.Fatalf("post: %d %s", rec.Code, rec.Body.String())
	}
	wide := models.PriceSample{Mint: testMint, Price: 1, Confidence: 0.05, Source: models.SourceQuoted, Reliable: true, At: time.Now()}
	if err := f.ingest.Process(context.Background(), wide); err != nil {
		t.Fatalf("oracle sample after posted one: %v", err)
	}
	if st := f.conf.State(testMint); !st.IsTripped {
		t.Fatalf("oracle sample not applied: %+v", st)
	}
}

func TestTradeSubmitConflictWhenUnsafe(t *testing.T) {
	f := newFixture(t)
	body := `{"mint":"` + testMint + `","transaction":"AQID"}`

	rec, _ := f.do(t, http.MethodPost, "/api/trade/submit", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("loading mint: %d %s", rec.Code, rec.Body.String())
	}
	if f.exec.calls != 0 {
		t.Fatalf("executor called while unsafe")
	}

	_ = f.conf.Process(context.Background(), models.PriceSample{
		Mint: testMint, Price: 1, Confidence: 0.001, Source: models.SourceQuoted, Reliable: true,
	})
	rec, data := f.do(t, http.MethodPost, "/api/trade/submit", body)
	if rec.Code != http.StatusOK || data["signature"] != "SIG" || data["route"] != "rpc" {
		t.Fatalf("safe submit: %d %s", rec.Code, rec.Body.String())
	}

	if rec, _ := f.do(t, http.MethodPost, "/api/trade/submit", `{"mint":"`+testMint+`","transaction":"%%%"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad base64: %d", rec.Code)
	}

	q := "/api/trade/quote?input_mint=" + testMint + "&output_mint=" + testPool + "&amount=1000"
	rec, data = f.do(t, http.MethodGet, q, "")
	if rec.Code != http.StatusOK || data["out_amount"] != "42" || data["slippage_bps"] != float64(50) {
		t.Fatalf("quote: %d %s", rec.Code, rec.Body.String())
	}
	same := "/api/trade/quote?input_mint=" + testMint + "&output_mint=" + testMint + "&amount=1000"
	if rec, _ := f.do(t, http.MethodGet, same, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("same mints: %d", rec.Code)
	}
}

func TestStateEndpoints(t *testing.T) {
	f := newFixture(t)

	body := `{"positions":[{"mint":"` + testMint + `","entry_price":"2","amount":"10","current_price":"3"}]}`
	rec, data := f.do(t, http.MethodPut, "/api/state/positions", body)
	if rec.Code != http.StatusOK || data["total"] != float64(1) {
		t.Fatalf("save positions: %d %s", rec.Code, rec.Body.String())
	}
	rec, data = f.do(t, http.MethodGet, "/api/state/positions", "")
	rows, _ := data["rows"].([]interface{})
	if rec.Code != http.StatusOK || len(rows) != 1 {
		t.Fatalf("positions: %d %s", rec.Code, rec.Body.String())
	}
	// Demo market prices never overwrite the stored mark.
	if p := rows[0].(map[string]interface{}); p["pnl"] != "10" || p["id"] == "" {
		t.Fatalf("position = %v", p)
	}

	rec, data = f.do(t, http.MethodPost, "/api/state/snipes", `{"mint":"`+testMint+`","amount_sol":"0.5"}`)
	if rec.Code != http.StatusCreated || data["status"] != "submitted" {
		t.Fatalf("snipe: %d %s", rec.Code, rec.Body.String())
	}

	rec, data = f.do(t, http.MethodGet, "/api/state/algo", "")
	if rec.Code != http.StatusOK || data["max_positions"] != float64(5) {
		t.Fatalf("default algo: %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := f.do(t, http.MethodPut, "/api/state/algo", `{"max_positions":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid algo: %d", rec.Code)
	}

	rec, data = f.do(t, http.MethodPost, "/api/state/picks", `{"mint":"`+testMint+`","pick_price":2,"current_price":3}`)
	if rec.Code != http.StatusCreated || data["return_pct"] != float64(50) {
		t.Fatalf("pick: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMarketEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, data := f.do(t, http.MethodGet, "/api/market/"+testMint, "")
	if rec.Code != http.StatusOK || data["demo"] != true || data["mint"] != testMint {
		t.Fatalf("market: %d %s", rec.Code, rec.Body.String())
	}

	if rec, _ := f.do(t, http.MethodGet, "/api/sentiment", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing mints: %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/sentiment?mints=abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad mint: %d", rec.Code)
	}
	rec, data = f.do(t, http.MethodGet, "/api/sentiment?mints="+testMint+","+testPool, "")
	if rec.Code != http.StatusOK || data["total"] != float64(2) {
		t.Fatalf("sentiment: %d %s", rec.Code, rec.Body.String())
	}

	rec, data = f.do(t, http.MethodGet, "/api/graduations?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("graduations: %d %s", rec.Code, rec.Body.String())
	}

	rec, data = f.do(t, http.MethodGet, "/api/dashboard/"+testMint, "")
	if rec.Code != http.StatusOK || data["market"] == nil || data["confidence"] == nil || data["strategies"] == nil {
		t.Fatalf("dashboard: %d %s", rec.Code, rec.Body.String())
	}

	rec, data = f.do(t, http.MethodGet, "/api/datasource", "")
	if rec.Code != http.StatusOK || data["live"] != false || data["demo_forced"] != true {
		t.Fatalf("datasource: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimitOnlyGuardsAPI(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(ratelimit.New(), 1, 0.001, logger.Nop()))
	ok := func(c echo.Context) error { return xhttp.SuccessResponse(c, "ok") }
	e.GET("/api/ping", ok)
	e.GET("/healthz", ok)

	codes := func(path string) []int {
		var out []int
		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			out = append(out, rec.Code)
		}
		return out
	}
	if got := codes("/api/ping"); got[0] != http.StatusOK || got[1] != http.StatusTooManyRequests {
		t.Fatalf("api codes = %v", got)
	}
	if got := codes("/healthz"); got[1] != http.StatusOK {
		t.Fatalf("healthz codes = %v", got)
	}
}

func TestAppErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&usecase.UnsafeError{State: models.ConfidenceState{Mint: testMint, Tier: models.TierLoading}}, http.StatusConflict},
		{usecase.ErrBacktestNotFound, http.StatusNotFound},
		{&xhttp.StatusError{Code: http.StatusBadGateway}, http.StatusBadGateway},
		{&xhttp.StatusError{Code: http.StatusNotFound}, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		_ = xhttp.AppErrorResponse(c, appError(tc.err))
		if rec.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}
