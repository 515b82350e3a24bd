package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepatch/internal/directive"
)

func TestParseDomain(t *testing.T) {
	d, err := parseDomain("lists")
	require.NoError(t, err)
	assert.Equal(t, directive.Lists, d)

	d, err = parseDomain("commands")
	require.NoError(t, err)
	assert.Equal(t, directive.Commands, d)

	_, err = parseDomain("widgets")
	assert.Error(t, err)
}

func TestDefaultRoot_EnvWins(t *testing.T) {
	t.Setenv("VOICEPATCH_ROOT", "/tmp/talon-user")
	assert.Equal(t, "/tmp/talon-user", defaultRoot())
}
