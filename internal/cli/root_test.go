package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "convoy", cmd.Use)
	assert.Contains(t, cmd.Long, "contract net")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "validate", "test", "trace", "replay", "export"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"run", []string{"db", "name", "realtime", "speedup", "tick"}},
		{"test", []string{"update", "filter"}},
		{"trace", []string{"db", "run", "kind", "actor"}},
		{"replay", []string{"db", "run", "fleet"}},
		{"export", []string{"db", "run", "fleet", "out"}},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestRunCommandDefaults(t *testing.T) {
	sub, _, err := NewRootCommand().Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "60", sub.Flags().Lookup("speedup").DefValue)
	assert.Equal(t, "100ms", sub.Flags().Lookup("tick").DefValue)
	assert.Equal(t, "false", sub.Flags().Lookup("realtime").DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestFormatValidationIntegration(t *testing.T) {
	fleet := writeFleet(t, t.TempDir())

	_, err := execute(t, "--format", "xml", "validate", fleet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
