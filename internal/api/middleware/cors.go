package middleware

import (
	"net/http"

	gorillaHandlers "github.com/gorilla/handlers"
)

// CORSConfig holds CORS settings applied at the root handler
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
}

// DefaultCORSConfig returns the settings used in release mode
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
	}
}

// DevelopmentCORSConfig allows any origin
func DevelopmentCORSConfig() CORSConfig {
	cfg := DefaultCORSConfig([]string{"*"})
	cfg.AllowCredentials = false
	return cfg
}

// CORS wraps a handler with gorilla/handlers CORS
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	opts := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.AllowOrigins),
		gorillaHandlers.AllowedMethods(cfg.AllowMethods),
		gorillaHandlers.AllowedHeaders(cfg.AllowHeaders),
		gorillaHandlers.ExposedHeaders(cfg.ExposeHeaders),
	}
	if cfg.AllowCredentials {
		opts = append(opts, gorillaHandlers.AllowCredentials())
	}
	return gorillaHandlers.CORS(opts...)
}
