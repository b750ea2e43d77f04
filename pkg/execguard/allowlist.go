// Package execguard decides whether a proposed shell command may run.
// It backs the pre-execution validation hook wired into every session:
// one verdict per command attempt, allow or deny with a reason.
//
// The allowlist is deliberately coarse. It is the innermost of three
// layers (sandbox, permissions, validation) and is bounded by the
// other two even when an entry is too generous.
package execguard

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Verdict is the outcome of validating one command.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Entry permits commands whose program name matches Command exactly or
// Pattern as a glob.
type Entry struct {
	Command string `json:"command,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// deniedFragments are refused regardless of allowlist contents.
var deniedFragments = []string{
	"rm -rf /",
	"sudo ",
	"shutdown",
	"mkfs",
	"> /dev/",
}

// Allowlist is a JSON-persisted command allowlist.
type Allowlist struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	entries []Entry
}

// DefaultEntries covers the commands an unattended web-project build
// realistically needs. Operators extend the persisted file by hand.
func DefaultEntries() []Entry {
	var entries []Entry
	for _, cmd := range []string{
		"ls", "cat", "head", "tail", "wc", "grep", "find", "diff",
		"mkdir", "cp", "mv", "touch", "chmod", "echo", "pwd", "which", "env",
		"node", "npm", "npx", "yarn", "pnpm", "tsc",
		"python", "python3", "pip", "pip3",
		"go", "git", "make", "curl", "tar", "sed", "awk", "sort", "kill",
	} {
		entries = append(entries, Entry{Command: cmd})
	}
	return entries
}

// NewAllowlist loads the allowlist at path, seeding it with
// DefaultEntries when no file exists yet.
func NewAllowlist(path string, logger zerolog.Logger) (*Allowlist, error) {
	al := &Allowlist{
		path:   path,
		logger: logger.With().Str("component", "execguard").Logger(),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &al.entries); err != nil {
			return nil, fmt.Errorf("failed to parse allowlist %s: %w", path, err)
		}
		al.logger.Debug().Str("path", path).Int("count", len(al.entries)).Msg("Allowlist loaded")
	case os.IsNotExist(err):
		al.entries = DefaultEntries()
		if err := al.save(); err != nil {
			return nil, err
		}
		al.logger.Info().Str("path", path).Int("count", len(al.entries)).Msg("Seeded default allowlist")
	default:
		return nil, fmt.Errorf("failed to read allowlist: %w", err)
	}

	return al, nil
}

// Validate checks one proposed shell command. Compound commands are
// split on shell connectors and every segment must pass.
func (al *Allowlist) Validate(command string) Verdict {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Verdict{Allowed: false, Reason: "empty command"}
	}

	lower := strings.ToLower(trimmed)
	for _, fragment := range deniedFragments {
		if strings.Contains(lower, fragment) {
			return Verdict{Allowed: false, Reason: fmt.Sprintf("command contains forbidden fragment %q", strings.TrimSpace(fragment))}
		}
	}

	for _, segment := range splitSegments(trimmed) {
		program := programName(segment)
		if program == "" {
			continue
		}
		if !al.permits(program) {
			return Verdict{Allowed: false, Reason: fmt.Sprintf("command %q is not on the allowlist", program)}
		}
	}

	return Verdict{Allowed: true}
}

func (al *Allowlist) permits(program string) bool {
	al.mu.RLock()
	defer al.mu.RUnlock()

	for _, entry := range al.entries {
		if entry.Command != "" && entry.Command == program {
			return true
		}
		if entry.Pattern != "" {
			if ok, err := path.Match(entry.Pattern, program); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Add appends an entry and persists the list.
func (al *Allowlist) Add(entry Entry) error {
	if entry.Command == "" && entry.Pattern == "" {
		return fmt.Errorf("either command or pattern must be specified")
	}

	al.mu.Lock()
	for _, existing := range al.entries {
		if existing.Command == entry.Command && existing.Pattern == entry.Pattern {
			al.mu.Unlock()
			return nil
		}
	}
	al.entries = append(al.entries, entry)
	al.mu.Unlock()

	return al.save()
}

func (al *Allowlist) save() error {
	al.mu.RLock()
	data, err := json.MarshalIndent(al.entries, "", "  ")
	al.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal allowlist: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(al.path), 0o755); err != nil {
		return fmt.Errorf("failed to create allowlist directory: %w", err)
	}
	if err := os.WriteFile(al.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write allowlist: %w", err)
	}
	return nil
}

// splitSegments breaks a compound command on shell connectors so each
// piece is validated on its own.
func splitSegments(command string) []string {
	for _, sep := range []string{"&&", "||", ";", "|"} {
		command = strings.ReplaceAll(command, sep, "\x00")
	}
	var segments []string
	for _, segment := range strings.Split(command, "\x00") {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// programName extracts the leading program word, skipping simple
// VAR=value environment prefixes.
func programName(segment string) string {
	for _, field := range strings.Fields(segment) {
		if strings.Contains(field, "=") && !strings.HasPrefix(field, "=") {
			continue
		}
		return filepath.Base(field)
	}
	return ""
}
