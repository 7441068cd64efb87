// Package orchestrator drives one conversation turn end to end: prompt
// assembly, the generation call, deterministic post-processing, turn
// recording, and stage advancement.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/shaf-aston/salestrainer/internal/engine"
	"github.com/shaf-aston/salestrainer/internal/genai"
	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/prompt"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// FallbackMessage is recorded as the assistant turn whenever the
// generation service fails or returns empty output, so the conversation
// history stays internally consistent.
const FallbackMessage = "Sorry, I lost my train of thought for a moment. Could you say that again?"

// Orchestrator owns the per-turn driving logic for one session. Turns
// within a session are strictly sequential; callers serialize access.
type Orchestrator struct {
	engine         *engine.Engine
	assembler      *prompt.Assembler
	client         genai.ClientInterface
	catalog        *signals.Catalog
	productContext string
	noTrailing     map[string]bool
}

// New creates an orchestrator. noTrailingQuestionStages names the stages
// whose replies must close with a statement; a trailing question mark from
// the generation service is stripped there as a deterministic guardrail.
func New(eng *engine.Engine, assembler *prompt.Assembler, client genai.ClientInterface, catalog *signals.Catalog, productContext string, noTrailingQuestionStages []string) *Orchestrator {
	noTrailing := make(map[string]bool, len(noTrailingQuestionStages))
	for _, stage := range noTrailingQuestionStages {
		noTrailing[stage] = true
	}
	return &Orchestrator{
		engine:         eng,
		assembler:      assembler,
		client:         client,
		catalog:        catalog,
		productContext: productContext,
		noTrailing:     noTrailing,
	}
}

// Engine exposes the underlying stage engine for rewind and summary
// operations. Callers must hold the same per-session serialization they
// hold for Chat.
func (o *Orchestrator) Engine() *engine.Engine {
	return o.engine
}

// Chat runs one full exchange. Generation failures are recovered locally:
// the fallback message is recorded as the assistant turn and the response
// is flagged degraded, so engine state is never left half-updated.
func (o *Orchestrator) Chat(ctx context.Context, userMessage string) (*models.ChatResponse, error) {
	stage := o.engine.Stage()
	stagePrompt := o.assembler.StagePrompt(o.engine.FlowID(), stage, o.productContext, o.engine.History(), userMessage)

	messages := o.buildMessages(stagePrompt, userMessage)

	start := time.Now()
	text, err := o.client.GenerateWithMessages(ctx, messages)
	latency := time.Since(start)

	degraded := false
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("Orchestrator.Chat: generation failed, using fallback",
			"flowID", o.engine.FlowID(), "stage", stage, "error", err, "latency", latency)
		text = FallbackMessage
		degraded = true
	}

	if !degraded && o.noTrailing[stage] {
		text = stripTrailingQuestion(text)
	}

	o.engine.AddTurn(userMessage, text)

	decision := o.engine.ShouldAdvance(userMessage)
	if decision.Advance {
		if advErr := o.engine.Advance(decision.Target); advErr != nil {
			slog.Error("Orchestrator.Chat: advance failed",
				"flowID", o.engine.FlowID(), "stage", stage, "target", decision.Target, "error", advErr)
		}
	}

	resp := &models.ChatResponse{
		Text:     text,
		FlowID:   o.engine.FlowID(),
		Stage:    o.engine.Stage(),
		Latency:  latency,
		Bytes:    len(text),
		Degraded: degraded,
	}
	slog.Info("Orchestrator.Chat: exchange complete",
		"flowID", resp.FlowID, "stage", resp.Stage, "latency", latency,
		"bytes", resp.Bytes, "degraded", degraded)
	return resp, nil
}

// buildMessages assembles the outbound message list: the stage prompt, a
// bounded window of prior turns, and the new user message.
func (o *Orchestrator) buildMessages(stagePrompt, userMessage string) []openai.ChatCompletionMessageParamUnion {
	history := o.engine.History()
	window := o.catalog.Thresholds().ChatWindow
	start := 0
	if len(history) > window {
		start = len(history) - window
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)-start+2)
	messages = append(messages, openai.SystemMessage(stagePrompt))
	for _, turn := range history[start:] {
		if turn.Role == models.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))
	return messages
}

// stripTrailingQuestion removes a trailing question mark so the reply
// closes with a statement. The generation service is instructed to do this
// itself; this is the deterministic backstop.
func stripTrailingQuestion(text string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(text), "?")
	trimmed = strings.TrimRight(trimmed, " ")
	if trimmed == "" {
		return text
	}
	if !strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "!") {
		trimmed += "."
	}
	return trimmed
}
