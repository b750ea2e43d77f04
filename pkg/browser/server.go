// Package browser exposes a headless Chrome instance as agent tools.
// The browser is launched lazily on first use so runs that never touch
// a page pay nothing for it.
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Config holds browser launch settings.
type Config struct {
	Headless   bool           `mapstructure:"headless"`
	NoSandbox  bool           `mapstructure:"no_sandbox"`
	ChromePath string         `mapstructure:"chrome_path"`
	Security   SecurityConfig `mapstructure:"security"`
}

// DefaultConfig returns the default browser settings.
func DefaultConfig() Config {
	return Config{
		Headless: true,
		Security: SecurityConfig{
			AllowLocalhostURLs: true,
		},
	}
}

// Server owns a single shared browser page driven by the agent's tools.
type Server struct {
	config Config
	gate   *Gate
	logger zerolog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewServer creates a browser tool server. No process is launched until
// a tool first needs a page.
func NewServer(config Config, logger zerolog.Logger) *Server {
	l := logger.With().Str("component", "browser").Logger()
	return &Server{
		config: config,
		gate:   NewGate(config.Security, l),
		logger: l,
	}
}

// activePage launches Chrome and opens the shared page on first call.
func (s *Server) activePage() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return s.page, nil
	}

	l := launcher.New().Headless(s.config.Headless)
	if s.config.NoSandbox {
		l = l.NoSandbox(true)
	}
	if s.config.ChromePath != "" {
		l = l.Bin(s.config.ChromePath)
	}

	cdpURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(cdpURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	s.launcher = l
	s.browser = browser
	s.page = page
	s.logger.Info().Bool("headless", s.config.Headless).Msg("Browser launched")

	return page, nil
}

// Navigate loads a URL and waits for the load event.
func (s *Server) Navigate(ctx context.Context, rawURL string) (string, error) {
	if err := s.gate.ValidateURL(rawURL); err != nil {
		return "", err
	}

	page, err := s.activePage()
	if err != nil {
		return "", err
	}
	page = page.Context(ctx)

	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load failed: %w", err)
	}

	info, err := page.Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return fmt.Sprintf("Loaded %s (title: %s)", info.URL, info.Title), nil
}

// ExtractText returns the visible text of the current page.
func (s *Server) ExtractText(ctx context.Context) (string, error) {
	page, err := s.activePage()
	if err != nil {
		return "", err
	}

	result, err := page.Context(ctx).Eval(`() => document.body.innerText`)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return result.Value.String(), nil
}

// ExtractHTML returns the current page's full HTML.
func (s *Server) ExtractHTML(ctx context.Context) (string, error) {
	page, err := s.activePage()
	if err != nil {
		return "", err
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to extract HTML: %w", err)
	}
	return html, nil
}

// Screenshot captures the viewport and returns base64 PNG data.
func (s *Server) Screenshot(ctx context.Context) (string, error) {
	page, err := s.activePage()
	if err != nil {
		return "", err
	}

	data, err := page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Click clicks the first element matching selector.
func (s *Server) Click(ctx context.Context, selector string) error {
	page, err := s.activePage()
	if err != nil {
		return err
	}
	page = page.Context(ctx).Timeout(10 * time.Second)

	elem, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	if err := elem.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type fills the first element matching selector with text.
func (s *Server) Type(ctx context.Context, selector, text string) error {
	page, err := s.activePage()
	if err != nil {
		return err
	}
	page = page.Context(ctx).Timeout(10 * time.Second)

	elem, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	if err := elem.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

// Evaluate runs JavaScript in the page and returns the result as a string.
func (s *Server) Evaluate(ctx context.Context, script string) (string, error) {
	page, err := s.activePage()
	if err != nil {
		return "", err
	}

	result, err := page.Context(ctx).Eval(script)
	if err != nil {
		return "", fmt.Errorf("script execution failed: %w", err)
	}
	return result.Value.String(), nil
}

// Close shuts down the browser if it was launched.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}

	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Kill()
	}
	s.browser = nil
	s.page = nil
	s.launcher = nil

	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
