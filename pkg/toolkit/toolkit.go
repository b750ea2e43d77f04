// Package toolkit provides the baseline tools an agent session may
// invoke and the registry that dispatches them. Tool failures are
// reported as results, never as Go errors: a failed tool call belongs
// in the transcript, not in the session's control flow.
package toolkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Parameter describes one tool input for the provider's tool schema.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Handler executes one tool call.
type Handler func(ctx context.Context, params map[string]interface{}) (string, error)

// Tool is a callable capability exposed to the agent.
type Tool struct {
	Name        string
	Description string
	Parameters  []Parameter
	Handler     Handler
}

// Result is the outcome of one tool execution.
type Result struct {
	Content string
	IsError bool
}

// Observer is notified after every tool execution.
type Observer func(name string, result Result)

// Registry holds the tools available to a session.
type Registry struct {
	logger   zerolog.Logger
	observer Observer

	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "toolkit").Logger(),
		tools:  make(map[string]Tool),
	}
}

// SetObserver installs a callback receiving every execution result,
// used for instrumentation. Must be set before sessions start.
func (r *Registry) SetObserver(fn Observer) {
	r.observer = fn
}

// Register adds a tool. Registering the same name twice is a wiring
// bug and fails loudly.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// RegisterAll registers a batch of tools.
func (r *Registry) RegisterAll(tools []Tool) error {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Definitions returns all registered tools in stable name order, for
// building the provider's tool schema.
func (r *Registry) Definitions() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs one tool call and always produces a Result.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) Result {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return Result{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}
	}

	content, err := tool.Handler(ctx, params)
	var res Result
	if err != nil {
		r.logger.Debug().Str("tool", name).Err(err).Msg("Tool execution failed")
		res = Result{Content: err.Error(), IsError: true}
	} else {
		res = Result{Content: content}
	}

	if r.observer != nil {
		r.observer(name, res)
	}
	return res
}

// stringParam fetches a string parameter, empty when absent.
func stringParam(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

// numberParam fetches a numeric parameter with a default.
func numberParam(params map[string]interface{}, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
