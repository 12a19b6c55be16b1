package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/stockwatch/internal/domain/auth"
)

func sessionRouter(s SessionService) *gin.Engine {
	h := NewSessionHandler(s)
	r := gin.New()
	r.GET("/api/v1/session", h.Get)
	r.POST("/api/v1/session", h.SignIn)
	r.DELETE("/api/v1/session", h.SignOut)
	return r
}

func TestSessionHandler_SignInWithToken(t *testing.T) {
	s := &fakeSessions{}
	w := do(sessionRouter(s), http.MethodPost, "/api/v1/session", `{"token":"abc"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var got auth.User
	decodeData(t, w, &got)
	assert.Equal(t, "token:abc", got.ID)
}

func TestSessionHandler_SignInWithBearerHeader(t *testing.T) {
	s := &fakeSessions{}
	r := sessionRouter(s)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token:xyz", s.user.ID)
}

func TestSessionHandler_SignInAsUser(t *testing.T) {
	s := &fakeSessions{}
	w := do(sessionRouter(s), http.MethodPost, "/api/v1/session", `{"user_id":"u7"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u7", s.user.ID)
}

func TestSessionHandler_SignInErrors(t *testing.T) {
	w := do(sessionRouter(&fakeSessions{}), http.MethodPost, "/api/v1/session", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(sessionRouter(&fakeSessions{err: auth.ErrInvalidToken}), http.MethodPost, "/api/v1/session", `{"token":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(sessionRouter(&fakeSessions{err: auth.ErrDevSignIn}), http.MethodPost, "/api/v1/session", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionHandler_GetAndSignOut(t *testing.T) {
	s := &fakeSessions{user: &auth.User{ID: "u1"}}
	r := sessionRouter(s)

	var got struct {
		SignedIn bool       `json:"signed_in"`
		User     *auth.User `json:"user"`
	}
	decodeData(t, do(r, http.MethodGet, "/api/v1/session", ""), &got)
	assert.True(t, got.SignedIn)
	assert.Equal(t, "u1", got.User.ID)

	w := do(r, http.MethodDelete, "/api/v1/session", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, s.user)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer "))
}
