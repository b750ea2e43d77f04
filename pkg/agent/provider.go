package agent

import (
	"context"
	"fmt"

	"github.com/harun/vigil/pkg/toolkit"
)

// Request is one provider call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []toolkit.Tool
	MaxTokens   int
	Temperature float64
}

// Response is the provider's reply to one call.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Provider is an LLM API backend.
type Provider interface {
	// Call makes one model invocation.
	Call(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// NewProvider creates a provider by name.
func NewProvider(name, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required for provider %s", name)
	}
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// toolSchema renders a tool definition as the generic JSON-schema
// object both providers consume.
func toolSchema(tool toolkit.Tool) (properties map[string]interface{}, required []string) {
	properties = make(map[string]interface{}, len(tool.Parameters))
	for _, param := range tool.Parameters {
		properties[param.Name] = map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Required {
			required = append(required, param.Name)
		}
	}
	return properties, required
}
