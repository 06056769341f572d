package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chucky-1/papertrader/internal/model"
	"github.com/chucky-1/papertrader/internal/portfolio"
	"github.com/chucky-1/papertrader/internal/trader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	symbols    []string
	symbolsErr error
	prices     map[string]float64
}

func (f *stubFeed) ListSymbols(ctx context.Context, currency string, limit int) ([]string, error) {
	if f.symbolsErr != nil {
		return nil, f.symbolsErr
	}
	return f.symbols, nil
}

func (f *stubFeed) GetPrices(ctx context.Context, symbols []string, currency string) (map[string]float64, error) {
	return f.prices, nil
}

func newTestHandler(t *testing.T, feed trader.Feed) http.Handler {
	t.Helper()
	tr := trader.NewTrader(context.Background(), portfolio.NewLedger(), feed, nil, nil, trader.Options{
		RefreshInterval: time.Hour, // keep the loop quiet during tests
	})
	t.Cleanup(tr.Close)
	return New(Config{Port: 0}, tr, nil).Handler()
}

func launch(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/launch", strings.NewReader(body))
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	handler := newTestHandler(t, &stubFeed{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_LaunchAndSession(t *testing.T) {
	handler := newTestHandler(t, &stubFeed{
		symbols: []string{"BTC", "ETH"},
		prices:  map[string]float64{"BTC": 100, "ETH": 10},
	})

	rec := launch(t, handler, `{"currency":"usd","amount":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		model.Snapshot
		CashDisplay string `json:"cash_display"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USD", resp.BaseCurrency)
	assert.Equal(t, 1000.0, resp.CashBalance)
	assert.Equal(t, "$1,000.00", resp.CashDisplay)
	assert.Len(t, resp.Positions, 2)
}

func TestServer_LaunchValidation(t *testing.T) {
	testTable := []struct {
		name   string
		body   string
		status int
	}{
		{
			name:   "Failed without currency",
			body:   `{"amount":1000}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "Failed with negative amount",
			body:   `{"currency":"USD","amount":-5}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "Failed with broken body",
			body:   `{`,
			status: http.StatusBadRequest,
		},
	}

	handler := newTestHandler(t, &stubFeed{symbols: []string{"BTC"}})
	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			rec := launch(t, handler, testCase.body)
			assert.Equal(t, testCase.status, rec.Code)
		})
	}
}

func TestServer_LaunchFeedDown(t *testing.T) {
	handler := newTestHandler(t, &stubFeed{symbolsErr: errors.New("provider down")})
	rec := launch(t, handler, `{"currency":"USD","amount":1000}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider down")
}

func TestServer_Trades(t *testing.T) {
	handler := newTestHandler(t, &stubFeed{
		symbols: []string{"BTC"},
		prices:  map[string]float64{"BTC": 100},
	})
	require.Equal(t, http.StatusOK, launch(t, handler, `{"currency":"USD","amount":1000}`).Code)

	// A valid buy
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{"symbol":"BTC","side":"B","quantity":5}`))
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 500.0, resp.CashBalance)
	assert.Equal(t, 500.0, resp.InvestedAmount)

	// An unaffordable buy is rejected without touching the book
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{"symbol":"BTC","side":"B","quantity":1000}`))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "you cannot afford to buy 1000 BTC")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var positions []model.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, 5.0, positions[0].Quantity)

	// The rejection message is pending on the session until cleared
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Contains(t, rec.Body.String(), "you cannot afford to buy")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/session/error", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.NotContains(t, rec.Body.String(), "you cannot afford to buy")
}

func TestServer_TradeValidation(t *testing.T) {
	handler := newTestHandler(t, &stubFeed{
		symbols: []string{"BTC"},
		prices:  map[string]float64{"BTC": 100},
	})
	require.Equal(t, http.StatusOK, launch(t, handler, `{"currency":"USD","amount":1000}`).Code)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{"side":"B","quantity":5}`))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{"symbol":"BTC","side":"X","quantity":5}`))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid side - X")
}

func TestServer_CORSPreflight(t *testing.T) {
	handler := newTestHandler(t, &stubFeed{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/trades", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
