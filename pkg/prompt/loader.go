// Package prompt loads the harness prompt texts. The harness treats
// both prompts as opaque strings; their content is owned by whoever
// maintains the prompts directory.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	initializerFile  = "initializer_prompt.md"
	continuationFile = "coding_prompt.md"

	// SpecFile is the application specification copied into a fresh
	// project for the agent to read.
	SpecFile = "app_spec.txt"
)

// Store reads prompt templates from a directory.
type Store struct {
	dir string
}

// NewStore validates the prompts directory and returns a store. The
// two prompt files must exist up front: discovering a missing prompt
// hours into an unattended run would waste the whole session.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prompts directory: %w", err)
	}

	for _, name := range []string{initializerFile, continuationFile} {
		if _, err := os.Stat(filepath.Join(abs, name)); err != nil {
			return nil, fmt.Errorf("prompts directory is missing %s: %w", name, err)
		}
	}

	return &Store{dir: abs}, nil
}

// Initializer returns the prompt for the first session of a project.
func (s *Store) Initializer() (string, error) {
	return s.load(initializerFile)
}

// Continuation returns the prompt for every subsequent session.
func (s *Store) Continuation() (string, error) {
	return s.load(continuationFile)
}

// SpecPath returns the path of the application spec, if present.
func (s *Store) SpecPath() string {
	return filepath.Join(s.dir, SpecFile)
}

func (s *Store) load(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt %s is empty", name)
	}
	return text, nil
}
