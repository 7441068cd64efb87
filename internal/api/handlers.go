package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shaf-aston/salestrainer/internal/engine"
	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/session"
)

// CreateSessionRequest selects what to practice against: a configured
// product (which implies a flow) or a flow directly.
type CreateSessionRequest struct {
	Product string `json:"product"`
	Flow    string `json:"flow"`
}

// ChatRequest carries one user message.
type ChatRequest struct {
	Message string `json:"message"`
}

// RewindRequest names the turn boundary to rewind to.
type RewindRequest struct {
	TurnIndex int `json:"turnIndex"`
}

// chatResult is the JSON shape of a completed exchange.
type chatResult struct {
	Text      string `json:"text"`
	Stage     string `json:"stage"`
	FlowID    string `json:"flowId"`
	LatencyMs int64  `json:"latencyMs"`
	Bytes     int    `json:"bytes"`
	Degraded  bool   `json:"degraded"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"sessions":  s.sessions.Count(),
		"timestamp": time.Now(),
	})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		slog.Warn("Server.handleCreateSession: invalid request", "error", err)
		return c.JSON(http.StatusBadRequest, models.Error("Invalid JSON format"))
	}

	sess, err := s.sessions.Create(req.Product, req.Flow)
	if err != nil {
		if errors.Is(err, session.ErrUnknownFlow) {
			return c.JSON(http.StatusBadRequest, models.Error(err.Error()))
		}
		slog.Error("Server.handleCreateSession: create failed", "error", err)
		return c.JSON(http.StatusInternalServerError, models.Error("Failed to create session"))
	}

	return c.JSON(http.StatusCreated, models.Success(sess.Summary()))
}

func (s *Server) handleChat(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Error(err.Error()))
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		slog.Warn("Server.handleChat: invalid request", "error", err)
		return c.JSON(http.StatusBadRequest, models.Error("Invalid JSON format"))
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, models.Error("message is required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.chatTimeout)
	defer cancel()

	resp, err := sess.Chat(ctx, req.Message)
	if err != nil {
		slog.Error("Server.handleChat: chat failed", "sessionID", sess.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, models.Error("Failed to process message"))
	}

	return c.JSON(http.StatusOK, models.Success(chatResult{
		Text:      resp.Text,
		Stage:     resp.Stage,
		FlowID:    resp.FlowID,
		LatencyMs: resp.LatencyMs(),
		Bytes:     resp.Bytes,
		Degraded:  resp.Degraded,
	}))
}

func (s *Server) handleRewind(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Error(err.Error()))
	}

	var req RewindRequest
	if err := c.Bind(&req); err != nil {
		slog.Warn("Server.handleRewind: invalid request", "error", err)
		return c.JSON(http.StatusBadRequest, models.Error("Invalid JSON format"))
	}

	if err := sess.Rewind(req.TurnIndex); err != nil {
		if errors.Is(err, engine.ErrInvalidRewind) {
			return c.JSON(http.StatusBadRequest, models.Error(err.Error()))
		}
		slog.Error("Server.handleRewind: rewind failed", "sessionID", sess.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, models.Error("Failed to rewind session"))
	}

	return c.JSON(http.StatusOK, models.SuccessWithMessage("Session rewound", sess.Summary()))
}

func (s *Server) handleSummary(c echo.Context) error {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Error(err.Error()))
	}
	return c.JSON(http.StatusOK, models.Success(sess.Summary()))
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if _, err := s.sessions.Get(c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, models.Error(err.Error()))
	}
	s.sessions.Remove(c.Param("id"))
	return c.JSON(http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
}
