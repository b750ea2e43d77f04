package browser

import (
	"context"
	"fmt"

	"github.com/harun/vigil/pkg/toolkit"
)

// Tools returns the browser tool definitions backed by the given server.
func Tools(server *Server) []toolkit.Tool {
	return []toolkit.Tool{
		{
			Name:        "browser_navigate",
			Description: "Navigate the browser to a URL and wait for the page to load. Validates URL security before navigation.",
			Parameters: []toolkit.Parameter{
				{Name: "url", Type: "string", Description: "URL to navigate to", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
				rawURL, ok := params["url"].(string)
				if !ok || rawURL == "" {
					return "", fmt.Errorf("url parameter is required")
				}
				return server.Navigate(ctx, rawURL)
			},
		},
		{
			Name:        "browser_extract",
			Description: "Extract content from the current page as visible text or raw HTML.",
			Parameters: []toolkit.Parameter{
				{Name: "format", Type: "string", Description: "Extraction format: 'text' or 'html' (default: 'text')", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
				format, _ := params["format"].(string)
				switch format {
				case "", "text":
					return server.ExtractText(ctx)
				case "html":
					return server.ExtractHTML(ctx)
				default:
					return "", fmt.Errorf("invalid extraction format: %s (must be 'text' or 'html')", format)
				}
			},
		},
		{
			Name:        "browser_screenshot",
			Description: "Capture a screenshot of the current page viewport. Returns base64-encoded PNG data.",
			Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
				return server.Screenshot(ctx)
			},
		},
		{
			Name:        "browser_click",
			Description: "Click the first element matching a CSS selector on the current page.",
			Parameters: []toolkit.Parameter{
				{Name: "selector", Type: "string", Description: "CSS selector of the element to click", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
				selector, ok := params["selector"].(string)
				if !ok || selector == "" {
					return "", fmt.Errorf("selector parameter is required")
				}
				if err := server.Click(ctx, selector); err != nil {
					return "", err
				}
				return fmt.Sprintf("Clicked %s", selector), nil
			},
		},
		{
			Name:        "browser_type",
			Description: "Type text into the first element matching a CSS selector.",
			Parameters: []toolkit.Parameter{
				{Name: "selector", Type: "string", Description: "CSS selector of the input element", Required: true},
				{Name: "text", Type: "string", Description: "Text to type", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
				selector, ok := params["selector"].(string)
				if !ok || selector == "" {
					return "", fmt.Errorf("selector parameter is required")
				}
				text, ok := params["text"].(string)
				if !ok {
					return "", fmt.Errorf("text parameter is required")
				}
				if err := server.Type(ctx, selector, text); err != nil {
					return "", err
				}
				return fmt.Sprintf("Typed into %s", selector), nil
			},
		},
		{
			Name:        "browser_evaluate",
			Description: "Execute JavaScript in the current page context and return the result.",
			Parameters: []toolkit.Parameter{
				{Name: "script", Type: "string", Description: "JavaScript code to execute, as an arrow function like '() => document.title'", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
				script, ok := params["script"].(string)
				if !ok || script == "" {
					return "", fmt.Errorf("script parameter is required")
				}
				return server.Evaluate(ctx, script)
			},
		},
	}
}
