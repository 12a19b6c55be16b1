// Package session holds the process-wide signed-in user and notifies listeners on change.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/auth"
)

// Config holds provider configuration
type Config struct {
	JWTSecret      string // HS256 key; empty disables token sign-in
	AllowDevSignIn bool   // allow SignInAsUser without a token
}

// Claims are the token claims read on sign-in
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Provider implements auth.Provider.
// Listeners are called in registration order, one change at a time.
type Provider struct {
	secret   []byte
	allowDev bool
	now      func() time.Time

	mu        sync.Mutex
	current   *auth.User
	listeners map[int]func(*auth.User)
	order     []int
	nextID    int

	// notifyMu serializes changes so listeners observe them in order
	notifyMu sync.Mutex
}

// NewProvider creates a signed-out provider
func NewProvider(cfg Config) *Provider {
	return &Provider{
		secret:    []byte(cfg.JWTSecret),
		allowDev:  cfg.AllowDevSignIn,
		now:       time.Now,
		listeners: make(map[int]func(*auth.User)),
	}
}

// CurrentUser returns a copy of the signed-in user
func (p *Provider) CurrentUser() (*auth.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, false
	}
	u := *p.current
	return &u, true
}

// OnAuthStateChanged registers fn and calls it right away with the current user
func (p *Provider) OnAuthStateChanged(fn func(*auth.User)) (remove func()) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.order = append(p.order, id)
	current := copyUser(p.current)
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// SignInWithToken verifies an HS256 token and signs in its subject
func (p *Provider) SignInWithToken(ctx context.Context, token string) (*auth.User, error) {
	if len(p.secret) == 0 {
		return nil, fmt.Errorf("%w: token sign-in is not configured", auth.ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, auth.ErrMissingUserID
	}

	user := &auth.User{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}
	p.set(user)
	return copyUser(user), nil
}

// SignInAsUser signs in userID without credentials; development only
func (p *Provider) SignInAsUser(ctx context.Context, userID string) (*auth.User, error) {
	if !p.allowDev {
		return nil, auth.ErrDevSignIn
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, auth.ErrMissingUserID
	}

	user := &auth.User{ID: userID}
	p.set(user)
	return copyUser(user), nil
}

// SignOut clears the current user
func (p *Provider) SignOut(ctx context.Context) error {
	p.set(nil)
	return nil
}

// IssueToken signs an HS256 token for user valid for ttl
func (p *Provider) IssueToken(user auth.User, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	if user.ID == "" {
		return "", auth.ErrMissingUserID
	}

	now := p.now()
	claims := Claims{
		Email: user.Email,
		Name:  user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// set stores user and notifies listeners when the identity changed
func (p *Provider) set(user *auth.User) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	prev := p.current
	p.current = copyUser(user)
	changed := (prev == nil) != (user == nil) || (prev != nil && user != nil && prev.ID != user.ID)
	fns := make([]func(*auth.User), 0, len(p.order))
	for _, id := range p.order {
		fns = append(fns, p.listeners[id])
	}
	p.mu.Unlock()

	if !changed {
		return
	}

	if user != nil {
		log.Info().Str("user_id", user.ID).Msg("User signed in")
	} else {
		log.Info().Msg("User signed out")
	}

	for _, fn := range fns {
		fn(copyUser(user))
	}
}

func copyUser(u *auth.User) *auth.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
