// Package server exposes a read-only HTTP API over the persisted crawl
// state: per-source summaries, stored records and discovery history.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
	"github.com/heshaofu2/superviseInfo/pkg/store"
)

// Storage reads persisted crawl state
type Storage interface {
	GetAllSummaries() []domain.Summary
	GetSummary(sourceURL, sourceName string) domain.Summary
	Load(sourceURL, sourceName string) store.RecordSet
	LoadHistory(sourceURL, sourceName string) []store.HistoryEntry
}

// ConfigProvider provides server configuration and the active source list
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	EnabledSources() []domain.Source
}

// Server represents HTTP server instance
type Server struct {
	config  ConfigProvider
	store   Storage
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a new server instance
func New(cfg ConfigProvider, st Storage, version string, debug bool) *Server {
	s := &Server{
		config:  cfg,
		store:   st,
		version: version,
		debug:   debug,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("superviseinfo", "heshaofu2", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /summaries", s.summariesHandler)
		r.HandleFunc("GET /sources/{key}/items", s.itemsHandler)
		r.HandleFunc("GET /sources/{key}/history", s.historyHandler)
	})
}
