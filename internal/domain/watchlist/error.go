package watchlist

import "errors"

// Domain errors
var (
	// Snapshot errors
	ErrNoStockData = errors.New("no valid stock data found")

	// Validation errors
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidCriterion = errors.New("invalid sort or filter criterion")
	ErrInvalidPosition  = errors.New("position out of range")
	ErrMissingID        = errors.New("stock has no id")

	// Session errors
	ErrSignedOut = errors.New("no signed-in user")

	// Store errors
	ErrStockNotFound = errors.New("stock not found")
	ErrStoreFailure  = errors.New("watchlist store operation failed")
)
