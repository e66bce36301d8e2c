package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"plan", "resolve", "runs", "postal"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "route-planner", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestPlanCommand_Flags(t *testing.T) {
	for _, name := range []string{"sheet", "customers", "out", "departure"} {
		flag := planCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "plan should have --%s flag", name)
		assert.Equal(t, "", flag.DefValue)
	}

	flag := planCmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestResolveCommand_Flags(t *testing.T) {
	flag := resolveCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)

	flag = resolveCmd.Flags().Lookup("suggest")
	require.NotNil(t, flag)
	assert.Equal(t, "3", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)

	flag = runsShowCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "json", flag.DefValue)
}

func TestPostalCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range postalCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["lookup"])
	assert.True(t, names["warm"])
}
