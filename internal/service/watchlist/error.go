package watchlist

import "errors"

// Manager errors
var (
	ErrNotRunning     = errors.New("watchlist manager not running")
	ErrStopped        = errors.New("watchlist manager stopped")
	ErrAlreadyRunning = errors.New("watchlist manager already started")
	ErrSessionChanged = errors.New("session changed before the operation completed")
	ErrAlreadySaved   = errors.New("stock already in watchlist")
	ErrNoHistory      = errors.New("history client not configured")
)
