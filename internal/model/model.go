// Package model has structs shared between the packages
package model

// Side says whether an order buys or sells
type Side string

// Sides of a trade. The single-letter values match what the UI sends
const (
	Buy  Side = "B"
	Sell Side = "S"
)

// Position is the holding of one symbol inside the session
type Position struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
	Amount   float64 `json:"amount"`
	PnL      float64 `json:"pnl"`
}

// Quote is the latest known price of one symbol in a currency
type Quote struct {
	Symbol   string  `json:"symbol"`
	Currency string  `json:"currency"`
	Price    float64 `json:"price"`
	Update   int64   `json:"update"` // unix milliseconds
}

// Snapshot is a consistent copy of the whole session
type Snapshot struct {
	BaseCurrency    string     `json:"base_ccy"`
	CashBalance     float64    `json:"cash_balance"`
	InvestedAmount  float64    `json:"invested_amt"`
	InvestmentValue float64    `json:"investment_value"`
	InvestmentPnL   float64    `json:"investment_pnl"`
	LastError       string     `json:"error,omitempty"`
	Positions       []Position `json:"portfolio"`
}
