package agent

import (
	"context"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/harun/vigil/pkg/toolkit"
)

// RuntimeConfig configures the in-process agent runtime.
type RuntimeConfig struct {
	Provider     Provider
	Registry     *toolkit.Registry
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64

	// MaxTurns bounds provider round-trips within one session. The
	// harness bounds wall-clock retry behavior; this bounds in-session
	// work.
	MaxTurns int

	Logger zerolog.Logger
}

// Runtime drives a tool-using agent against an LLM provider and
// exposes each run as an ordered event stream. It implements Service.
type Runtime struct {
	cfg    RuntimeConfig
	logger zerolog.Logger
}

// NewRuntime creates a runtime.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 1000
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}

	return &Runtime{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "runtime").Logger(),
	}, nil
}

// Open starts one session. The returned session owns a goroutine that
// runs the provider/tool loop until the turn completes, fails, or the
// context is cancelled; its event channel closes on every exit path.
func (r *Runtime) Open(ctx context.Context, prompt string) (Session, error) {
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sess := &runtimeSession{
		id:     id,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go r.run(runCtx, sess, prompt)
	return sess, nil
}

func (r *Runtime) run(ctx context.Context, sess *runtimeSession, prompt string) {
	defer close(sess.done)
	defer close(sess.events)

	logger := r.logger.With().Str("session_id", sess.id).Logger()
	messages := []Message{{Role: "user", Content: prompt}}

	for turn := 0; turn < r.cfg.MaxTurns; turn++ {
		response, err := r.cfg.Provider.Call(ctx, Request{
			Model:       r.cfg.Model,
			System:      r.cfg.SystemPrompt,
			Messages:    messages,
			Tools:       r.cfg.Registry.Definitions(),
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		})
		if err != nil {
			sess.err = fmt.Errorf("provider %s call failed: %w", r.cfg.Provider.Name(), err)
			return
		}

		if response.Content != "" {
			if !sess.emit(ctx, Event{Kind: EventAssistantText, Text: response.Content}) {
				return
			}
		}

		// No tool calls means the agent has finished its turn.
		if len(response.ToolCalls) == 0 {
			logger.Debug().Int("turns", turn+1).Msg("Session completed")
			return
		}

		results := make([]Message, 0, len(response.ToolCalls))
		for _, call := range response.ToolCalls {
			if !sess.emit(ctx, Event{
				Kind:      EventToolCall,
				ToolName:  call.Name,
				ToolInput: renderInput(call.Parameters),
			}) {
				return
			}

			result := r.cfg.Registry.Execute(ctx, call.Name, call.Parameters)
			if !sess.emit(ctx, Event{
				Kind:    EventToolResult,
				Text:    result.Content,
				IsError: result.IsError,
			}) {
				return
			}

			results = append(results, Message{
				Role:       "tool",
				Content:    result.Content,
				ToolCallID: call.ID,
			})
		}

		messages = append(messages, Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		messages = append(messages, results...)
	}

	logger.Warn().Int("max_turns", r.cfg.MaxTurns).Msg("Session hit the turn ceiling")
}

// renderInput produces a compact JSON rendering of tool parameters for
// the transcript.
func renderInput(params map[string]interface{}) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(data)
}

type runtimeSession struct {
	id     string
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// emit delivers an event unless the session was cancelled.
func (s *runtimeSession) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		s.err = ctx.Err()
		return false
	}
}

func (s *runtimeSession) Events() <-chan Event {
	return s.events
}

func (s *runtimeSession) Err() error {
	<-s.done
	return s.err
}

func (s *runtimeSession) Close() error {
	s.cancel()
	<-s.done
	return nil
}
