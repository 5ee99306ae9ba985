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

	for _, name := range []string{"download", "extract", "digitize", "run", "status", "export"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "estimates-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDownloadCommand_Flags(t *testing.T) {
	for _, name := range []string{"start", "end", "since-last"} {
		require.NotNil(t, downloadCmd.Flags().Lookup(name), "download should have --%s", name)
		require.NotNil(t, runCmd.Flags().Lookup(name), "run should have --%s", name)
	}
}

func TestDigitizeCommand_Flags(t *testing.T) {
	flag := digitizeCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	flag = digitizeCmd.Flags().Lookup("multi")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)

	require.NotNil(t, runCmd.Flags().Lookup("multi"))
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "output/estimates.xlsx", flag.DefValue)
}

func TestStatusCommand_Flags(t *testing.T) {
	flag := statusCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
}
