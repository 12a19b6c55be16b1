package auth

import (
	"context"
	"errors"
)

// User is the signed-in identity
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Provider reports the current identity and pushes changes to listeners
type Provider interface {
	CurrentUser() (*User, bool)
	// OnAuthStateChanged registers fn and invokes it once with the current state.
	// fn(nil) means signed out. The returned func removes it.
	OnAuthStateChanged(fn func(*User)) (remove func())
	SignOut(ctx context.Context) error
}

// Domain errors
var (
	ErrInvalidToken  = errors.New("invalid session token")
	ErrMissingUserID = errors.New("token has no subject")
	ErrDevSignIn     = errors.New("sign-in by user id is disabled")
)
