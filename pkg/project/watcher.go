package project

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports marker-file updates while a session runs, so the
// operator sees progress during the long quiet stretches of agent
// work. Purely observational: losing events is harmless.
type Watcher struct {
	state  State
	logger zerolog.Logger
}

// NewWatcher creates a progress watcher for a project.
func NewWatcher(state State, logger zerolog.Logger) *Watcher {
	return &Watcher{
		state:  state,
		logger: logger.With().Str("component", "progress").Logger(),
	}
}

// Run watches the project directory until ctx is cancelled, emitting
// the parsed progress on updates to ch. The channel is closed on
// return.
func (w *Watcher) Run(ctx context.Context, ch chan<- Progress) error {
	defer close(ch)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.state.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.state.Dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != MarkerFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			progress, err := w.state.ReadProgress()
			if err != nil {
				// Mid-write reads are expected; the next event will
				// carry a complete file.
				w.logger.Debug().Err(err).Msg("Skipping unreadable marker update")
				continue
			}
			select {
			case ch <- progress:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}
