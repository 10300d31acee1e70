package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"monitor", "serve", "score", "init"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "puntwatch", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, name := range []string{
		"possession", "yards-to-endzone", "distance", "clock",
		"period", "own-score", "opp-score", "postseason", "explain",
	} {
		flag := scoreCmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "score command should have --%s flag", name)
	}
}

func TestInitCommand_Flags(t *testing.T) {
	flag := initCmd.Flags().Lookup("force")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
