package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"addr", "static", "log-file", "origins", "send-buffer"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":9999", "--static", ""}))
	assert.Equal(t, ":9999", cmd.Flags().Lookup("addr").Value.String())
	assert.Equal(t, "", cmd.Flags().Lookup("static").Value.String())
}
