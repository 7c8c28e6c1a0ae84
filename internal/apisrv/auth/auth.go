// Package auth implements the static bearer-token gate in front of the
// reports API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthHeaderKey is the header carrying the bearer token.
const AuthHeaderKey = "Authorization"

// Config contains the configuration for the auth gate.
type Config struct {
	Token string `mapstructure:"token"`
}

// Server guards handlers with a fixed bearer token.
type Server struct {
	c *Config
}

// New creates a new auth gate.
func New(c *Config) *Server {
	return &Server{c: c}
}

// WithAuth middleware compares the request's bearer token with the
// configured one. An empty configured token leaves the endpoint open; a
// missing or mismatched token is rejected before any upstream call.
func (s *Server) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.c.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get(AuthHeaderKey), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.c.Token)) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
