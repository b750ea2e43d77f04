package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/vigil/pkg/toolkit"
)

// scriptedProvider replays canned responses, one per call.
type scriptedProvider struct {
	responses []*Response
	errs      []error
	calls     int
	requests  []Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Call(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.requests = append(p.requests, req)
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		return nil, errors.New("scripted provider exhausted")
	}
	return p.responses[i], nil
}

func echoRegistry(t *testing.T) *toolkit.Registry {
	t.Helper()
	registry := toolkit.NewRegistry(zerolog.Nop())
	require.NoError(t, registry.Register(toolkit.Tool{
		Name:        "echo",
		Description: "echoes its input",
		Parameters:  []toolkit.Parameter{{Name: "text", Type: "string", Required: true}},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			text, _ := params["text"].(string)
			if text == "boom" {
				return "", errors.New("echo exploded")
			}
			return "echo: " + text, nil
		},
	}))
	return registry
}

func newTestRuntime(t *testing.T, provider Provider) *Runtime {
	t.Helper()
	runtime, err := NewRuntime(RuntimeConfig{
		Provider: provider,
		Registry: echoRegistry(t),
		Model:    "test-model",
		MaxTurns: 10,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return runtime
}

func collect(t *testing.T, sess Session) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("session did not finish")
		}
	}
}

func TestRuntimeTextOnlySession(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{
		{Content: "all done, nothing to run"},
	}}
	runtime := newTestRuntime(t, provider)

	sess, err := runtime.Open(context.Background(), "do the thing")
	require.NoError(t, err)
	defer sess.Close()

	events := collect(t, sess)
	require.NoError(t, sess.Err())
	require.Len(t, events, 1)
	assert.Equal(t, EventAssistantText, events[0].Kind)
	assert.Equal(t, "all done, nothing to run", events[0].Text)
}

func TestRuntimeToolLoopEmitsOrderedEvents(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{
		{
			Content:   "running the echo tool",
			ToolCalls: []ToolCall{{ID: "t1", Name: "echo", Parameters: map[string]interface{}{"text": "hi"}}},
		},
		{Content: "finished"},
	}}
	runtime := newTestRuntime(t, provider)

	sess, err := runtime.Open(context.Background(), "go")
	require.NoError(t, err)
	defer sess.Close()

	events := collect(t, sess)
	require.NoError(t, sess.Err())
	require.Len(t, events, 4)

	assert.Equal(t, EventAssistantText, events[0].Kind)
	assert.Equal(t, EventToolCall, events[1].Kind)
	assert.Equal(t, "echo", events[1].ToolName)
	assert.Contains(t, events[1].ToolInput, `"text":"hi"`)
	assert.Equal(t, EventToolResult, events[2].Kind)
	assert.Equal(t, "echo: hi", events[2].Text)
	assert.False(t, events[2].IsError)
	assert.Equal(t, EventAssistantText, events[3].Kind)

	// The second call must carry the tool result back to the provider.
	require.Len(t, provider.requests, 2)
	last := provider.requests[1].Messages
	assert.Equal(t, "tool", last[len(last)-1].Role)
	assert.Equal(t, "t1", last[len(last)-1].ToolCallID)
}

func TestRuntimeToolFailureBecomesErrorResult(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{
		{ToolCalls: []ToolCall{{ID: "t1", Name: "echo", Parameters: map[string]interface{}{"text": "boom"}}}},
		{Content: "recovered"},
	}}
	runtime := newTestRuntime(t, provider)

	sess, err := runtime.Open(context.Background(), "go")
	require.NoError(t, err)
	defer sess.Close()

	events := collect(t, sess)
	require.NoError(t, sess.Err())

	var result *Event
	for i := range events {
		if events[i].Kind == EventToolResult {
			result = &events[i]
			break
		}
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "echo exploded")
}

func TestRuntimeProviderFailureSurfacesAsSessionError(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("connection reset")}}
	runtime := newTestRuntime(t, provider)

	sess, err := runtime.Open(context.Background(), "go")
	require.NoError(t, err)
	defer sess.Close()

	events := collect(t, sess)
	assert.Empty(t, events)

	err = sess.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRuntimeCancellationUnwindsCleanly(t *testing.T) {
	// A provider that keeps requesting tool calls forever.
	provider := &scriptedProvider{}
	for i := 0; i < 100; i++ {
		provider.responses = append(provider.responses, &Response{
			ToolCalls: []ToolCall{{ID: "t", Name: "echo", Parameters: map[string]interface{}{"text": "x"}}},
		})
	}
	runtime := newTestRuntime(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := runtime.Open(ctx, "go")
	require.NoError(t, err)

	// Read a couple of events, then cancel mid-stream.
	<-sess.Events()
	cancel()

	done := make(chan struct{})
	go func() {
		for range sess.Events() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not close after cancellation")
	}
	require.NoError(t, sess.Close())
}

func TestNewRuntimeValidation(t *testing.T) {
	_, err := NewRuntime(RuntimeConfig{})
	assert.Error(t, err)

	_, err = NewRuntime(RuntimeConfig{Provider: &scriptedProvider{}})
	assert.Error(t, err)
}

func TestNewProviderFactory(t *testing.T) {
	p, err := NewProvider("anthropic", "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider("openai", "key")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider("gemini", "key")
	assert.Error(t, err)

	_, err = NewProvider("anthropic", "")
	assert.Error(t, err)
}
