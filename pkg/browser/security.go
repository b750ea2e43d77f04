package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityConfig controls which URLs the browser tools may visit.
type SecurityConfig struct {
	AllowFileURLs      bool     `mapstructure:"allow_file_urls"`
	AllowLocalhostURLs bool     `mapstructure:"allow_localhost_urls"`
	AllowedDomains     []string `mapstructure:"allowed_domains"`
	BlockedDomains     []string `mapstructure:"blocked_domains"`
}

// Gate validates URLs against the security policy before navigation.
type Gate struct {
	config SecurityConfig
	logger zerolog.Logger
}

// NewGate creates a URL security gate.
func NewGate(config SecurityConfig, logger zerolog.Logger) *Gate {
	return &Gate{
		config: config,
		logger: logger.With().Str("component", "browser_gate").Logger(),
	}
}

// ValidateURL checks a URL against the gate's policy.
func (g *Gate) ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %s", raw)
	}

	switch parsed.Scheme {
	case "http", "https":
	case "file":
		if !g.config.AllowFileURLs {
			g.logViolation("file_url_blocked", raw)
			return fmt.Errorf("file:// URLs are not allowed")
		}
	default:
		g.logViolation("scheme_blocked", raw)
		return fmt.Errorf("URL scheme %q is not allowed", parsed.Scheme)
	}

	if g.isLocalhostURL(parsed) && !g.config.AllowLocalhostURLs {
		g.logViolation("localhost_url_blocked", raw)
		return fmt.Errorf("localhost URLs are not allowed")
	}

	if len(g.config.AllowedDomains) > 0 && !g.domainListed(parsed.Host, g.config.AllowedDomains) {
		g.logViolation("domain_not_allowed", raw)
		return fmt.Errorf("domain not in allowed list: %s", parsed.Host)
	}

	if g.domainListed(parsed.Host, g.config.BlockedDomains) {
		g.logViolation("domain_blocked", raw)
		return fmt.Errorf("domain is blocked: %s", parsed.Host)
	}

	return nil
}

// isLocalhostURL checks if a URL points to the local machine
func (g *Gate) isLocalhostURL(parsed *url.URL) bool {
	host := strings.ToLower(parsed.Hostname())

	return host == "localhost" ||
		host == "::1" ||
		host == "0.0.0.0" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "localhost.")
}

func (g *Gate) domainListed(host string, patterns []string) bool {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	for _, pattern := range patterns {
		if matchDomain(host, pattern) {
			return true
		}
	}
	return false
}

// matchDomain checks if a host matches a domain pattern
func matchDomain(host, pattern string) bool {
	// Exact match
	if host == pattern {
		return true
	}

	// Wildcard match (*.example.com)
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[2:]
		return strings.HasSuffix(host, "."+suffix) || host == suffix
	}

	// Subdomain match (.example.com matches any subdomain)
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(host, pattern) || host == pattern[1:]
	}

	return false
}

func (g *Gate) logViolation(kind, raw string) {
	g.logger.Warn().
		Str("violation", kind).
		Str("url", raw).
		Msg("URL rejected by browser security policy")
}
