package quote

import "errors"

// Domain errors
var (
	// Transport errors (network, non-2xx, rate limit)
	ErrTransport   = errors.New("quote provider unreachable")
	ErrRateLimited = errors.New("quote provider rate limit reached")

	// Decoding errors
	ErrDecoding = errors.New("quote provider returned malformed data")

	// Lookup errors
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrInvalidRange   = errors.New("invalid chart range")
)
