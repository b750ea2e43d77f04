package browser

import (
	"context"
	"testing"

	"github.com/harun/vigil/pkg/toolkit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise tool wiring and validation only. Anything that
// would launch a real Chrome process is out of scope here.

func TestToolsDefinitions(t *testing.T) {
	server := NewServer(DefaultConfig(), zerolog.Nop())
	tools := Tools(server)

	names := make(map[string]bool)
	for _, tool := range tools {
		require.NotEmpty(t, tool.Name)
		require.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.Handler)
		names[tool.Name] = true
	}

	for _, want := range []string{
		"browser_navigate",
		"browser_extract",
		"browser_screenshot",
		"browser_click",
		"browser_type",
		"browser_evaluate",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func findTool(t *testing.T, server *Server, name string) toolkit.Tool {
	t.Helper()
	for _, tool := range Tools(server) {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return toolkit.Tool{}
}

func TestNavigateToolRejectsBlockedURL(t *testing.T) {
	// Localhost disallowed, so the gate rejects before any browser launch.
	server := NewServer(Config{Headless: true}, zerolog.Nop())
	navigate := findTool(t, server, "browser_navigate")

	_, err := navigate.Handler(context.Background(), map[string]interface{}{
		"url": "http://127.0.0.1:9222/json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost")

	_, err = navigate.Handler(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url parameter is required")
}

func TestExtractToolRejectsUnknownFormat(t *testing.T) {
	server := NewServer(DefaultConfig(), zerolog.Nop())
	extract := findTool(t, server, "browser_extract")

	_, err := extract.Handler(context.Background(), map[string]interface{}{
		"format": "pdf",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid extraction format")
}

func TestCloseWithoutLaunchIsNoop(t *testing.T) {
	server := NewServer(DefaultConfig(), zerolog.Nop())
	assert.NoError(t, server.Close())
}
