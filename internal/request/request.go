// Package request has structs of the API request bodies
package request

// Launch starts a new session
type Launch struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// Trade places one order. Side is "B" to buy or "S" to sell
type Trade struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
}
