package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRootCmd(t *testing.T) {
	cmd := GetRootCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "vigil", cmd.Use)
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, version, GetVersion())
}

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range GetRootCmd().Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["run"], "run command missing")
	assert.True(t, names["status"], "status command missing")
}

func TestGlobalFlags(t *testing.T) {
	flags := GetRootCmd().PersistentFlags()
	assert.NotNil(t, flags.Lookup("config"))
	assert.NotNil(t, flags.Lookup("log-level"))
}
