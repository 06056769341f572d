// Package portfolio keeps all financial state of a trading session.
// Every mutation goes through the Ledger and runs under one mutex, so a
// trade can never interleave with a price update on the same session.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/chucky-1/papertrader/internal/model"
)

// Validation errors recorded by the ledger. Callers match them with errors.Is
var (
	ErrSessionNotActive     = errors.New("session is not active")
	ErrUnknownSymbol        = errors.New("unknown symbol")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidSide          = errors.New("invalid side")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// Ledger owns the session: cash, positions and the aggregates over them
type Ledger struct {
	mu              sync.Mutex
	baseCurrency    string
	cashBalance     float64
	investedAmount  float64
	investmentValue float64
	investmentPnL   float64
	lastError       string
	symbols         []string // insertion order of positions
	positions       map[string]*model.Position
}

// NewLedger is constructor
func NewLedger() *Ledger {
	return &Ledger{
		positions: make(map[string]*model.Position),
	}
}

// Reset starts a fresh session in the given currency with the given cash.
// Existing positions keep their symbols but lose every financial field.
// Calling it twice with the same arguments gives the same state
func (l *Ledger) Reset(currency string, startingCash float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, position := range l.positions {
		position.Price = 0
		position.Quantity = 0
		position.Value = 0
		position.Amount = 0
		position.PnL = 0
	}
	l.baseCurrency = currency
	l.cashBalance = startingCash
	l.investedAmount = 0
	l.investmentValue = 0
	l.investmentPnL = 0
}

// SeedUniverse replaces the tracked symbol set. New symbols get a flat
// position, symbols missing from the list are dropped together with any
// holding they had
func (l *Ledger) SeedUniverse(symbols []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make(map[string]*model.Position, len(symbols))
	order := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := positions[symbol]; ok {
			continue
		}
		positions[symbol] = &model.Position{Symbol: symbol}
		order = append(order, symbol)
	}
	l.positions = positions
	l.symbols = order
}

// AbsorbPrices applies one batch of price updates and remarks the book.
// A symbol missing from the batch keeps its last price, a symbol not yet
// tracked is inserted as a flat position at the new price. Quantity, amount
// and cash are never touched here
func (l *Ledger) AbsorbPrices(prices map[string]float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.symbols) == 0 {
		return ErrSessionNotActive
	}

	for symbol, price := range prices {
		position, ok := l.positions[symbol]
		if !ok {
			l.positions[symbol] = &model.Position{Symbol: symbol, Price: price}
			l.symbols = append(l.symbols, symbol)
			continue
		}
		position.Price = price
		position.Value = position.Quantity * position.Price
		position.PnL = position.Value - position.Amount
	}

	// The aggregate is recomputed over the whole book, never from the
	// updated subset alone.
	value := 0.0
	for _, position := range l.positions {
		value += position.Value
	}
	l.investmentValue = value
	l.investmentPnL = l.investmentValue - l.investedAmount
	return nil
}

// ExecuteTrade validates and applies one order at the position's current
// mark. Validation failures leave everything unchanged except the last
// error message
func (l *Ledger) ExecuteTrade(symbol string, side model.Side, quantity float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.symbols) == 0 {
		return l.reject(ErrSessionNotActive)
	}
	position, ok := l.positions[symbol]
	if !ok {
		return l.reject(fmt.Errorf("%w - %s", ErrUnknownSymbol, symbol))
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return l.reject(fmt.Errorf("%w - %v", ErrInvalidQuantity, quantity))
	}

	principal := quantity * position.Price

	switch side {
	case model.Buy:
		if principal > l.cashBalance {
			return l.reject(fmt.Errorf("%w: you cannot afford to buy %v %s", ErrInsufficientFunds, quantity, symbol))
		}
		position.Quantity += quantity
		position.Amount += principal
		position.Value += principal
		position.PnL = position.Value - position.Amount

		l.cashBalance -= principal
		l.investedAmount += principal
		l.investmentValue += principal
		l.investmentPnL = l.investmentValue - l.investedAmount
	case model.Sell:
		if quantity > position.Quantity {
			return l.reject(fmt.Errorf("%w: you dont have %v %s to sell", ErrInsufficientHoldings, quantity, symbol))
		}
		position.Quantity -= quantity
		position.Amount -= principal
		position.Value -= principal
		position.PnL = position.Value - position.Amount

		l.cashBalance += principal
		l.investedAmount -= principal
		l.investmentValue -= principal
		l.investmentPnL = l.investmentValue - l.investedAmount
	default:
		return l.reject(fmt.Errorf("%w - %s", ErrInvalidSide, side))
	}
	return nil
}

// reject records the message and returns the error. Must be called with the
// mutex held
func (l *Ledger) reject(err error) error {
	l.lastError = err.Error()
	return err
}

// ClearError wipes the pending user-facing error message
func (l *Ledger) ClearError() {
	l.mu.Lock()
	l.lastError = ""
	l.mu.Unlock()
}

// BaseCurrency returns the currency the session is denominated in
func (l *Ledger) BaseCurrency() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseCurrency
}

// CashBalance returns the uncommitted cash
func (l *Ledger) CashBalance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cashBalance
}

// InvestedAmount returns the net principal committed to open positions
func (l *Ledger) InvestedAmount() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.investedAmount
}

// InvestmentValue returns the mark-to-market value of the book
func (l *Ledger) InvestmentValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.investmentValue
}

// InvestmentPnL returns value minus invested amount
func (l *Ledger) InvestmentPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.investmentPnL
}

// LastError returns the pending user-facing error message, "" if none
func (l *Ledger) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

// Positions returns a copy of every position in insertion order
func (l *Ledger) Positions() []model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyPositions()
}

// Snapshot returns a consistent copy of the whole session
func (l *Ledger) Snapshot() model.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.Snapshot{
		BaseCurrency:    l.baseCurrency,
		CashBalance:     l.cashBalance,
		InvestedAmount:  l.investedAmount,
		InvestmentValue: l.investmentValue,
		InvestmentPnL:   l.investmentPnL,
		LastError:       l.lastError,
		Positions:       l.copyPositions(),
	}
}

// copyPositions must be called with the mutex held
func (l *Ledger) copyPositions() []model.Position {
	positions := make([]model.Position, 0, len(l.symbols))
	for _, symbol := range l.symbols {
		positions = append(positions, *l.positions[symbol])
	}
	return positions
}
