package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "migrate", "healthcheck"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.RunE)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}
