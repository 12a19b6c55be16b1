package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
)

// Alert is raised when a refresh moves a price by at least the significance threshold
type Alert struct {
	Stock  watchlist.Stock `json:"stock"`
	Change decimal.Decimal `json:"change_percent"`
	Title  string          `json:"title"`
	Body   string          `json:"body"`
	At     time.Time       `json:"at"`
}

func newAlert(stock watchlist.Stock, change decimal.Decimal, at time.Time) Alert {
	return Alert{
		Stock:  stock.Clone(),
		Change: change,
		Title:  fmt.Sprintf("%s Price Change", stock.Name),
		Body:   fmt.Sprintf("The price of %s has changed by %s%%.", stock.Symbol, change.StringFixed(2)),
		At:     at,
	}
}

// ErrorKind groups user-visible failures
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindDecoding   ErrorKind = "decoding"
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation"
	KindUnknown    ErrorKind = "unknown"
)

// Classify maps an error to its kind
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, quote.ErrTransport),
		errors.Is(err, quote.ErrRateLimited),
		errors.Is(err, watchlist.ErrStoreFailure),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, quote.ErrDecoding):
		return KindDecoding
	case errors.Is(err, quote.ErrSymbolNotFound),
		errors.Is(err, watchlist.ErrNoStockData),
		errors.Is(err, watchlist.ErrStockNotFound):
		return KindNotFound
	case errors.Is(err, watchlist.ErrInvalidSymbol),
		errors.Is(err, watchlist.ErrInvalidCriterion),
		errors.Is(err, watchlist.ErrInvalidPosition),
		errors.Is(err, watchlist.ErrMissingID),
		errors.Is(err, watchlist.ErrSignedOut),
		errors.Is(err, ErrAlreadySaved):
		return KindValidation
	}
	return KindUnknown
}

// Toast is a single user-visible error message
type Toast struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	At      time.Time `json:"at"`
	Err     error     `json:"-"`
}

// NewToast builds the message shown for err
func NewToast(err error, at time.Time) Toast {
	return Toast{
		Message: err.Error(),
		Kind:    Classify(err),
		At:      at,
		Err:     err,
	}
}

// Listener receives manager events.
// Methods are never called from the manager loop, so they may call back into the Manager.
type Listener interface {
	OnWatchlistChanged(view *View)
	OnSignificantPriceChange(alert Alert)
	OnError(toast Toast)
}

// Listeners fans events out to several listeners in order
type Listeners []Listener

func (ls Listeners) OnWatchlistChanged(view *View) {
	for _, l := range ls {
		l.OnWatchlistChanged(view)
	}
}

func (ls Listeners) OnSignificantPriceChange(alert Alert) {
	for _, l := range ls {
		l.OnSignificantPriceChange(alert)
	}
}

func (ls Listeners) OnError(toast Toast) {
	for _, l := range ls {
		l.OnError(toast)
	}
}

// ListenerFuncs adapts plain functions; nil fields are skipped
type ListenerFuncs struct {
	Changed func(view *View)
	Alert   func(alert Alert)
	Error   func(toast Toast)
}

func (f ListenerFuncs) OnWatchlistChanged(view *View) {
	if f.Changed != nil {
		f.Changed(view)
	}
}

func (f ListenerFuncs) OnSignificantPriceChange(alert Alert) {
	if f.Alert != nil {
		f.Alert(alert)
	}
}

func (f ListenerFuncs) OnError(toast Toast) {
	if f.Error != nil {
		f.Error(toast)
	}
}
