// Package api provides the HTTP server: job trigger endpoints for the
// scheduler and a JWT-authenticated operator surface.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/api/jobs"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	JWTSecret      []byte
	ServiceKey     string // shared credential for the trigger endpoints
	AccessTokenTTL time.Duration
	RateLimitPerIP int // login attempts per minute per IP
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 5
	}
}

// Server is the HTTP API server.
type Server struct {
	config  *Config
	storage storage.Storage
	runner  jobs.Runner
	server  *http.Server
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, runner jobs.Runner) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("service key is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:  cfg,
		storage: store,
		runner:  runner,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // evaluation passes run inline on trigger requests
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
