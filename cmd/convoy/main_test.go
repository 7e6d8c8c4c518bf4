package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/convoy/internal/cli"
)

func TestVersionCommand(t *testing.T) {
	root := cli.NewRootCommand()
	root.AddCommand(newVersionCmd())
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	assert.Equal(t, cli.ExitSuccess, execute(root))
	assert.Contains(t, buf.String(), "convoy dev")
}

func TestExecute_ExitCodeFromCommand(t *testing.T) {
	root := cli.NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"validate", "/nonexistent/fleet.yaml"})

	assert.Equal(t, cli.ExitCommandError, execute(root))
}
