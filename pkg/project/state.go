// Package project observes harness-relevant state inside a project
// directory. The progress marker is written by the agent, never by the
// harness; this package only reads it.
package project

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MarkerFile flags a project as started. Its content is owned by the
// agent; the harness cares about existence and, opportunistically, the
// per-feature pass flags inside it.
const MarkerFile = "feature_list.json"

// State is a view over one project directory.
type State struct {
	Dir string
}

// New resolves the project directory, creating it if needed.
func New(dir string) (State, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return State{}, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return State{}, fmt.Errorf("failed to create project directory: %w", err)
	}
	return State{Dir: abs}, nil
}

// MarkerPath returns the absolute path of the progress marker.
func (s State) MarkerPath() string {
	return filepath.Join(s.Dir, MarkerFile)
}

// HasStarted reports whether the agent has ever run against this
// project. Derived purely from marker presence so it survives harness
// restarts.
func (s State) HasStarted() bool {
	_, err := os.Stat(s.MarkerPath())
	return err == nil
}

// CopySpecFrom copies the application spec into the project for the
// agent to read. Only done once: an existing copy is left alone.
func (s State) CopySpecFrom(specPath string) error {
	dest := filepath.Join(s.Dir, filepath.Base(specPath))
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	src, err := os.Open(specPath)
	if err != nil {
		return fmt.Errorf("failed to open spec %s: %w", specPath, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to copy spec into project: %w", err)
	}
	return nil
}

// Progress summarizes the marker file's feature pass-state.
type Progress struct {
	Total   int
	Passing int
}

// featureEntry is the subset of the agent's marker format the harness
// understands. Unknown fields are ignored.
type featureEntry struct {
	Description string `json:"description"`
	Passes      bool   `json:"passes"`
}

// ReadProgress parses the marker file leniently. Any shape the harness
// cannot read yields a zero Progress and an error the caller may log
// and ignore; progress display must never break the loop.
func (s State) ReadProgress() (Progress, error) {
	data, err := os.ReadFile(s.MarkerPath())
	if err != nil {
		return Progress{}, err
	}

	var features []featureEntry
	if err := json.Unmarshal(data, &features); err != nil {
		return Progress{}, fmt.Errorf("unreadable marker format: %w", err)
	}

	p := Progress{Total: len(features)}
	for _, f := range features {
		if f.Passes {
			p.Passing++
		}
	}
	return p, nil
}

// String renders a short operator-facing summary.
func (p Progress) String() string {
	if p.Total == 0 {
		return "no features recorded yet"
	}
	return fmt.Sprintf("%d/%d features passing", p.Passing, p.Total)
}
