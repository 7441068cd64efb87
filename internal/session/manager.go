// Package session manages concurrent conversation sessions. Each session
// owns exactly one stage engine; turns within a session are serialized by a
// per-session mutex while independent sessions run concurrently, sharing
// only the read-only signal catalog.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaf-aston/salestrainer/internal/config"
	"github.com/shaf-aston/salestrainer/internal/engine"
	"github.com/shaf-aston/salestrainer/internal/genai"
	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/nlu"
	"github.com/shaf-aston/salestrainer/internal/orchestrator"
	"github.com/shaf-aston/salestrainer/internal/prompt"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// ErrUnknownSession is returned when a session id does not exist.
var ErrUnknownSession = errors.New("unknown session")

// ErrUnknownFlow is returned at creation time when the requested flow or
// product is not configured. Sessions are never rejected mid-conversation.
var ErrUnknownFlow = errors.New("unknown flow or product")

// Session is one live practice conversation.
type Session struct {
	ID string

	mu   sync.Mutex
	orch *orchestrator.Orchestrator
}

// Chat runs one exchange. The session mutex serializes chat and rewind
// against each other.
func (s *Session) Chat(ctx context.Context, userMessage string) (*models.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.Chat(ctx, userMessage)
}

// Rewind truncates the conversation at the given turn boundary and replays
// the remainder deterministically.
func (s *Session) Rewind(turnIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.Engine().RewindToTurn(turnIndex)
}

// Summary reports the session's current flow position and turn counts.
func (s *Session) Summary() models.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng := s.orch.Engine()
	return models.SessionSummary{
		SessionID:  s.ID,
		FlowID:     eng.FlowID(),
		Stage:      eng.Stage(),
		StageTurns: eng.StageTurns(),
		TotalTurns: len(eng.History()),
		TurnCounts: eng.TurnCounts(),
	}
}

// Manager creates and tracks sessions.
type Manager struct {
	cfg        *config.Config
	matcher    *signals.Matcher
	analyzer   *nlu.Analyzer
	classifier *nlu.ObjectionClassifier
	assembler  *prompt.Assembler
	client     genai.ClientInterface

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager over the loaded configuration and
// shared analysis components.
func NewManager(cfg *config.Config, matcher *signals.Matcher, analyzer *nlu.Analyzer, classifier *nlu.ObjectionClassifier, assembler *prompt.Assembler, client genai.ClientInterface) *Manager {
	return &Manager{
		cfg:        cfg,
		matcher:    matcher,
		analyzer:   analyzer,
		classifier: classifier,
		assembler:  assembler,
		client:     client,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a session for a product (resolving its configured flow and
// context) or, when product is empty, directly for a flow id.
func (m *Manager) Create(productID, flowID string) (*Session, error) {
	productContext := ""

	if productID == "" && flowID == "" {
		productID = m.cfg.DefaultProduct
	}
	if productID != "" {
		product, ok := m.cfg.Products[productID]
		if !ok {
			return nil, fmt.Errorf("%w: product %q", ErrUnknownFlow, productID)
		}
		flowID = product.Flow
		productContext = product.Context
	}

	flow, ok := m.cfg.Flows[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: flow %q", ErrUnknownFlow, flowID)
	}

	eng := engine.New(flow, m.cfg.Catalog, m.matcher, m.analyzer)
	orch := orchestrator.New(eng, m.assembler, m.client, m.cfg.Catalog, productContext, m.cfg.NoTrailingQuestion)

	session := &Session{
		ID:   uuid.NewString(),
		orch: orch,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	slog.Info("Manager.Create: session created",
		"sessionID", session.ID, "flowID", flowID, "product", productID)
	return session, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return session, nil
}

// Remove deletes a session. Removing an unknown id is not an error.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	slog.Debug("Manager.Remove: session removed", "sessionID", id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
