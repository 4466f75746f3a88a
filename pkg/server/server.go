// Package server publishes resolved application settings over HTTP, so that a browser
// application can discover its API base URL at runtime.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/animalet/appenv/internal/snapshot"
	"github.com/animalet/appenv/pkg/settings"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second

	defaultContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"
)

var debug = false

// SetDebug toggles debug logging and gin's debug mode for servers started afterwards.
func SetDebug(debugEnabled bool) {
	debug = debugEnabled
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}
}

// Server serves one Settings value.
type Server struct {
	settings        settings.Settings
	config          ServerConfig
	httpServer      *http.Server
	listener        net.Listener
	shutdownChannel chan os.Signal
}

// NewServer creates a server for s. cfg is copied: later changes to it are not observed.
func NewServer(s settings.Settings, cfg ServerConfig) *Server {
	return &Server{
		settings: s,
		config:   snapshot.Of(cfg),
	}
}

// Handler builds the HTTP handler without starting a listener.
func (s *Server) Handler() (http.Handler, error) {
	engine := gin.New()
	if gin.IsDebugging() {
		log.Debug().Msg("Running in debug mode")
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	csp := s.config.ContentSecurityPolicy
	if csp == "" {
		csp = defaultContentSecurityPolicy
	}
	engine.Use(
		gin.Logger(),
		gin.Recovery(),
		secure.New(secure.Config{
			AllowedHosts:          s.config.AllowedHosts,
			STSSeconds:            31536000,
			STSIncludeSubdomains:  true,
			FrameDeny:             true,
			ContentTypeNosniff:    true,
			BrowserXssFilter:      true,
			ContentSecurityPolicy: csp,
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			IsDevelopment:         debug,
		}),
		noStore,
	)

	engine.GET(s.config.path(), s.serveJSON)
	engine.GET(ModulePath, s.serveModule)
	return engine, nil
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Next()
}

func (s *Server) serveJSON(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings.Resolved())
}

// serveModule mirrors the module a bundler would generate from the same variables.
func (s *Server) serveModule(c *gin.Context) {
	apiURL, err := json.Marshal(s.settings.APIURL())
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	appName, err := json.Marshal(s.settings.AppName())
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	body := fmt.Sprintf("export const apiUrl = %s;\nexport const appName = %s;\n", apiURL, appName)
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", []byte(body))
}

// Start binds the configured address and serves in the background.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return errors.Wrap(err, "failed to build HTTP handler")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.config.Address)
	}
	s.listener = listener
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.httpServer = httpServer

	log.Info().
		Str("address", listener.Addr().String()).
		Str("path", s.config.path()).
		Msg("Publishing application settings")
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Serve error")
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// StartAndWaitForSignal starts the server and shuts it down on SIGINT or SIGTERM.
func (s *Server) StartAndWaitForSignal() error {
	if err := s.Start(); err != nil {
		return err
	}
	s.shutdownChannel = make(chan os.Signal, 1)
	signal.Notify(s.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	log.Info().Msgf("Shutdown signal received (%s)", <-s.shutdownChannel)
	return s.Shutdown()
}

// Shutdown stops accepting connections and waits for active ones to finish. Calling it again is a no-op.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	httpServer := s.httpServer
	s.httpServer = nil
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "forced shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
