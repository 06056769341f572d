package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chucky-1/papertrader/internal/display"
	"github.com/chucky-1/papertrader/internal/model"
	"github.com/chucky-1/papertrader/internal/request"
	"github.com/chucky-1/papertrader/internal/trader"
)

type handlers struct {
	trader *trader.Trader
}

// sessionResponse is a snapshot plus formatted display fields
type sessionResponse struct {
	model.Snapshot
	CashDisplay  string `json:"cash_display"`
	ValueDisplay string `json:"investment_value_display"`
	PnLDisplay   string `json:"investment_pnl_display"`
}

func newSessionResponse(snapshot model.Snapshot) sessionResponse {
	return sessionResponse{
		Snapshot:     snapshot,
		CashDisplay:  display.Format(snapshot.CashBalance, snapshot.BaseCurrency),
		ValueDisplay: display.Format(snapshot.InvestmentValue, snapshot.BaseCurrency),
		PnLDisplay:   display.Format(snapshot.InvestmentPnL, snapshot.BaseCurrency),
	}
}

// GET /api/health
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/session
func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionResponse(h.trader.Snapshot()))
}

// POST /api/session/launch
func (h *handlers) launchSession(w http.ResponseWriter, r *http.Request) {
	var req request.Launch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	if err := h.trader.Launch(r.Context(), req.Currency, req.Amount); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(h.trader.Snapshot()))
}

// DELETE /api/session/error
func (h *handlers) clearError(w http.ResponseWriter, r *http.Request) {
	h.trader.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/positions
func (h *handlers) listPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.trader.Positions())
}

// POST /api/trades
func (h *handlers) placeTrade(w http.ResponseWriter, r *http.Request) {
	var req request.Trade
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if err := h.trader.Trade(req.Symbol, model.Side(req.Side), req.Quantity); err != nil {
		// Every trade failure is a business-rule rejection, the ledger
		// state is untouched.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(h.trader.Snapshot()))
}

// writeJSON marshals v and writes it with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
