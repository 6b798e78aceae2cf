package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"energy-trading-bot/internal/allocation"
	"energy-trading-bot/internal/circuit"
	"energy-trading-bot/internal/clock"
	"energy-trading-bot/internal/database"
	"energy-trading-bot/internal/engine"
	"energy-trading-bot/internal/events"
	"energy-trading-bot/internal/market"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()

	clk := clock.NewManual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	eng := engine.New(engine.Options{
		Assets:          market.DefaultAssets(),
		Feed:            market.NewSyntheticFeed(42, clk),
		PoolRegistry:    database.NewMemoryPoolRegistry(nil),
		AllocationStore: database.NewMemoryAllocationStore(),
		Bus:             events.NewBus(),
		Clock:           clk,
		UserID:          "test-user",
		HistoryCapacity: 2016,
		ValueSeriesCap:  100,
		RiskFreeRatePct: 5,
		BreakerConfig:   circuit.DefaultConfig(),
		TickMinInterval: 15 * time.Second,
		MaxCandidates:   2,
		Logger:          zerolog.Nop(),
	})

	return NewServer(eng, nil, nil, "test-user", zerolog.Nop()), eng
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return env
}

// ============================================================
// Read endpoints
// ============================================================

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}
	if body["cache"] != "disabled" {
		t.Errorf("cache should report disabled when nil, got %v", body["cache"])
	}
}

func TestGetSignals(t *testing.T) {
	s, eng := newTestServer(t)
	eng.Tick(context.Background())

	w := doRequest(t, s, http.MethodGet, "/api/v1/signals", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var signals []map[string]interface{}
	env := decode(t, w)
	if !env.Success {
		t.Fatal("expected success envelope")
	}
	json.Unmarshal(env.Data, &signals)
	if len(signals) != len(market.DefaultAssets()) {
		t.Errorf("expected a signal per asset, got %d", len(signals))
	}
	for _, sig := range signals {
		if _, ok := sig["assetId"]; !ok {
			t.Error("signal missing assetId field")
		}
		if _, ok := sig["confidence"]; !ok {
			t.Error("signal missing confidence field")
		}
	}
}

func TestGetPortfolioEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/portfolio", nil)

	env := decode(t, w)
	var pf struct {
		Assets  []interface{} `json:"assets"`
		Summary struct {
			TotalValue    float64 `json:"totalValue"`
			PositionCount int     `json:"positionCount"`
		} `json:"summary"`
	}
	json.Unmarshal(env.Data, &pf)
	if pf.Summary.PositionCount != 0 || pf.Summary.TotalValue != 0 {
		t.Errorf("fresh portfolio should be empty, got %+v", pf.Summary)
	}
}

func TestGetRisk(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/risk", nil)

	env := decode(t, w)
	var metrics struct {
		RiskLevel       string   `json:"riskLevel"`
		Recommendations []string `json:"recommendations"`
	}
	json.Unmarshal(env.Data, &metrics)
	if metrics.RiskLevel == "" {
		t.Error("risk level must be present")
	}
	if len(metrics.Recommendations) == 0 {
		t.Error("recommendations must never be empty")
	}
}

func TestGetAllocationRecommendation(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/allocation-recommendation?style=CONSERVATIVE", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	env := decode(t, w)
	var res allocation.Result
	json.Unmarshal(env.Data, &res)
	if len(res.Targets) != len(allocation.DefaultPools()) {
		t.Errorf("expected a target per pool, got %d", len(res.Targets))
	}
}

func TestGetAllocationRecommendationBadStyle(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/allocation-recommendation?style=RECKLESS", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown style must 400, got %d", w.Code)
	}
}

func TestUpdateAndGetAllocation(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"allocations": map[string]float64{"pool-solar-30": 500, "pool-flex-7": 75},
	})
	w := doRequest(t, s, http.MethodPut, "/api/v1/allocation", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodGet, "/api/v1/allocation", nil)
	env := decode(t, w)
	var current map[string]float64
	json.Unmarshal(env.Data, &current)
	if current["pool-solar-30"] != 500 || current["pool-flex-7"] != 75 {
		t.Errorf("stored allocation not returned, got %v", current)
	}
}

func TestUpdateAllocationUnknownPool(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"allocations": map[string]float64{"pool-coal-60": 500},
	})
	w := doRequest(t, s, http.MethodPut, "/api/v1/allocation", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown pool must 400, got %d", w.Code)
	}
}

func TestUpdateAllocationBelowMinStake(t *testing.T) {
	s, _ := newTestServer(t)

	// pool-core-90 requires 500
	body, _ := json.Marshal(map[string]interface{}{
		"allocations": map[string]float64{"pool-core-90": 200},
	})
	w := doRequest(t, s, http.MethodPut, "/api/v1/allocation", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("stake below pool minimum must 400, got %d", w.Code)
	}
}

func TestUpdateAllocationMissingBody(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPut, "/api/v1/allocation", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing allocations map must 400, got %d", w.Code)
	}
}

func TestGetGrowthProjection(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/growth-projection?months=6", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	env := decode(t, w)
	var points []struct {
		Month          int     `json:"month"`
		ProjectedValue float64 `json:"projectedValue"`
	}
	json.Unmarshal(env.Data, &points)
	if len(points) != 7 {
		t.Errorf("expected 7 points for 6 months, got %d", len(points))
	}
}

func TestGetGrowthProjectionBadMonths(t *testing.T) {
	s, _ := newTestServer(t)
	for _, q := range []string{"months=abc", "months=-3", "months=500"} {
		w := doRequest(t, s, http.MethodGet, "/api/v1/growth-projection?"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s must 400, got %d", q, w.Code)
		}
	}
}

func TestGetPools(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/pools", nil)

	env := decode(t, w)
	var pools []allocation.Pool
	json.Unmarshal(env.Data, &pools)
	if len(pools) != len(allocation.DefaultPools()) {
		t.Errorf("expected default pool catalog, got %d", len(pools))
	}
}

// ============================================================
// Bot control
// ============================================================

func TestBotActivateAndStatus(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"mode": "BALANCED"})
	w := doRequest(t, s, http.MethodPost, "/api/v1/bot/activate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodGet, "/api/v1/bot/status", nil)
	env := decode(t, w)
	var status struct {
		Mode    string `json:"mode"`
		Running bool   `json:"running"`
	}
	json.Unmarshal(env.Data, &status)
	if status.Mode != "BALANCED" || !status.Running {
		t.Errorf("expected running BALANCED, got %+v", status)
	}
}

func TestBotActivateUnknownMode(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"mode": "TURBO"})
	w := doRequest(t, s, http.MethodPost, "/api/v1/bot/activate", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown mode must 400, got %d", w.Code)
	}
}

func TestBotActivateMissingMode(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/bot/activate", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing mode must 400, got %d", w.Code)
	}
}

// ============================================================
// Rate limiting
// ============================================================

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("GET:/x") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("GET:/x") {
		t.Error("fourth request in the window must be refused")
	}
	if !rl.Allow("GET:/y") {
		t.Error("other keys must not be affected")
	}
}
