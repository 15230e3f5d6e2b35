package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMainVersion(t *testing.T) {
	assert.Equal(t, 0, Main([]string{"fruitstand", "-version"}))
	assert.Equal(t, 0, Main([]string{"fruitstand", "version"}))
	assert.Equal(t, 0, Main([]string{"/usr/local/bin/fruitstand", "-v"}))
}

func TestCommandsRegistered(t *testing.T) {
	initCommands(nil, nil)
	for _, name := range []string{"serve", "version", "operator", "operator check-ready", "operator issue-token"} {
		factory, ok := Commands[name]
		if assert.True(t, ok, name) {
			c, err := factory()
			assert.NoError(t, err)
			assert.NotEmpty(t, c.Synopsis())
		}
	}
}
