package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Handle points at a persisted policy. Path is absolute so the agent
// runtime configuration can reference it regardless of its own working
// directory.
type Handle struct {
	Path   string
	Policy Policy

	// Created reports whether this call wrote the file. False means a
	// previously agreed policy was found and left untouched.
	Created bool
}

// Builder persists execution policies. It is the only harness
// component that mutates state outside the project's own generated
// artifacts.
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder creates a policy builder.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		logger: logger.With().Str("component", "policy").Logger(),
	}
}

// EnsurePolicy makes sure a policy file exists for the project
// directory and returns a handle to it. Idempotent: running the
// harness twice on the same project must never silently change a
// previously agreed security posture, so an existing file is returned
// byte-for-byte unmodified. A malformed existing file is a fatal setup
// error rather than an excuse to rewrite it.
func (b *Builder) EnsurePolicy(projectDir string) (Handle, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	path := PathIn(abs)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Handle{}, fmt.Errorf("failed to create policy directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := ValidateDocument(data); err != nil {
			return Handle{}, fmt.Errorf("existing policy at %s is invalid: %w", path, err)
		}
		var existing Policy
		if err := json.Unmarshal(data, &existing); err != nil {
			return Handle{}, fmt.Errorf("failed to parse existing policy at %s: %w", path, err)
		}
		b.logger.Debug().Str("path", path).Msg("Reusing existing policy")
		return Handle{Path: path, Policy: existing}, nil
	} else if !os.IsNotExist(err) {
		return Handle{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	pol := Default()
	data, err := json.MarshalIndent(pol, "", "  ")
	if err != nil {
		return Handle{}, fmt.Errorf("failed to marshal policy: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("failed to write policy file: %w", err)
	}

	b.logger.Info().
		Str("path", path).
		Bool("sandbox", pol.Sandbox.Enabled).
		Str("default_mode", pol.Permissions.DefaultMode).
		Int("allow_rules", len(pol.Permissions.Allow)).
		Msg("Created security policy")

	return Handle{Path: path, Policy: pol, Created: true}, nil
}
