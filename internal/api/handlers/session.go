package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wonny/stockwatch/internal/api/response"
	"github.com/wonny/stockwatch/internal/domain/auth"
)

// SessionService signs the process-wide user in and out
type SessionService interface {
	CurrentUser() (*auth.User, bool)
	SignInWithToken(ctx context.Context, token string) (*auth.User, error)
	SignInAsUser(ctx context.Context, userID string) (*auth.User, error)
	SignOut(ctx context.Context) error
}

// SignInRequest carries either a token or, in development, a bare user id
type SignInRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// SessionHandler handles session requests
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(c *gin.Context) {
	user, ok := h.sessions.CurrentUser()
	response.Success(c, gin.H{"signed_in": ok, "user": user})
}

// SignIn handles POST /api/v1/session
// A bearer token in the Authorization header is accepted in place of the body.
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	if req.Token == "" {
		req.Token = bearerToken(c.GetHeader("Authorization"))
	}

	var (
		user *auth.User
		err  error
	)
	switch {
	case req.Token != "":
		user, err = h.sessions.SignInWithToken(c.Request.Context(), req.Token)
	case req.UserID != "":
		user, err = h.sessions.SignInAsUser(c.Request.Context(), req.UserID)
	default:
		response.BadRequest(c, "token or user_id is required")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, user, "Signed in")
}

// SignOut handles DELETE /api/v1/session
func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	response.NoContent(c)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
