package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasStartedTracksMarker(t *testing.T) {
	state, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, state.HasStarted())

	require.NoError(t, os.WriteFile(state.MarkerPath(), []byte(`[]`), 0o644))
	assert.True(t, state.HasStarted())
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generations", "demo")
	state, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(state.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopySpecFromIsOneShot(t *testing.T) {
	state, err := New(t.TempDir())
	require.NoError(t, err)

	specDir := t.TempDir()
	specPath := filepath.Join(specDir, "app_spec.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("build a chat app"), 0o644))

	require.NoError(t, state.CopySpecFrom(specPath))

	dest := filepath.Join(state.Dir, "app_spec.txt")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "build a chat app", string(data))

	// A second copy must not clobber agent-side edits.
	require.NoError(t, os.WriteFile(dest, []byte("edited"), 0o644))
	require.NoError(t, state.CopySpecFrom(specPath))
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data))
}

func TestReadProgress(t *testing.T) {
	state, err := New(t.TempDir())
	require.NoError(t, err)

	marker := `[
		{"description": "login", "passes": true},
		{"description": "signup", "passes": false},
		{"description": "chat", "passes": true}
	]`
	require.NoError(t, os.WriteFile(state.MarkerPath(), []byte(marker), 0o644))

	progress, err := state.ReadProgress()
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 2, progress.Passing)
	assert.Equal(t, "2/3 features passing", progress.String())
}

func TestReadProgressUnreadableMarker(t *testing.T) {
	state, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(state.MarkerPath(), []byte(`{"not": "a list"}`), 0o644))

	_, err = state.ReadProgress()
	assert.Error(t, err)
}

func TestProgressStringEmpty(t *testing.T) {
	assert.Equal(t, "no features recorded yet", Progress{}.String())
}
