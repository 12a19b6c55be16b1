package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/wonny/stockwatch/internal/api/response"
	"github.com/wonny/stockwatch/internal/domain/auth"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

// writeError maps service and domain errors to HTTP responses
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, watchlistsvc.ErrNotRunning),
		errors.Is(err, watchlistsvc.ErrStopped),
		errors.Is(err, watchlistsvc.ErrNoHistory):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, watchlist.ErrSignedOut),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingUserID):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, auth.ErrDevSignIn):
		response.Forbidden(c, err.Error())
	case errors.Is(err, watchlistsvc.ErrAlreadySaved), errors.Is(err, watchlistsvc.ErrSessionChanged):
		response.Conflict(c, err.Error())
	case errors.Is(err, quote.ErrRateLimited):
		response.RateLimitExceeded(c, err.Error())
	case errors.Is(err, quote.ErrInvalidRange):
		response.BadRequest(c, err.Error())
	case errors.Is(err, watchlist.ErrStoreFailure):
		response.StoreError(c, err)
	default:
		switch watchlistsvc.Classify(err) {
		case watchlistsvc.KindNotFound:
			response.NotFound(c, err.Error())
		case watchlistsvc.KindValidation:
			response.BadRequest(c, err.Error())
		case watchlistsvc.KindTransport, watchlistsvc.KindDecoding:
			response.ExternalAPIError(c, "Quote provider", err)
		default:
			response.InternalError(c, err)
		}
	}
}
