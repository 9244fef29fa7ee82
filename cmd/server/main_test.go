package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	for _, sub := range []string{"up", "down", "version"} {
		found, _, err := cmd.Find([]string{"migrate", sub})
		require.NoError(t, err, sub)
		assert.Equal(t, sub, found.Name())
	}
}

func TestMigrateCmd_RejectsArguments(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "up", "extra"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	assert.Error(t, cmd.Execute())
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "version: 3", formatVersion(3, false))
	assert.Equal(t, "version: 2 (dirty)", formatVersion(2, true))
}
