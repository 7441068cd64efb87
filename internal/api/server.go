// Package api exposes the conversation core over HTTP: session creation,
// chat, rewind, and summary endpoints.
package api

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shaf-aston/salestrainer/internal/session"
)

// DefaultChatTimeout bounds a single generation call. On timeout the
// orchestrator records the fallback turn and returns a degraded response,
// so engine state stays consistent.
const DefaultChatTimeout = 30 * time.Second

// Server wires the session manager into an echo HTTP server.
type Server struct {
	echo        *echo.Echo
	sessions    *session.Manager
	chatTimeout time.Duration
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(sessions *session.Manager) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, sessions: sessions, chatTimeout: DefaultChatTimeout}

	e.GET("/health", s.handleHealth)

	v1 := e.Group("/api/v1")
	v1.POST("/sessions", s.handleCreateSession)
	v1.POST("/sessions/:id/chat", s.handleChat)
	v1.POST("/sessions/:id/rewind", s.handleRewind)
	v1.GET("/sessions/:id/summary", s.handleSummary)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	slog.Info("Server.Start: listening", "addr", addr)
	return s.echo.Start(addr)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
