package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nxsetup/cmd/commands"
	"nxsetup/internal/models"
)

// noConfig points --config at an empty file so the host's config is ignored.
func noConfig(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return "--config=" + path
}

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, commands.CmdInstall},
		{[]string{"install"}, commands.CmdInstall},
		{[]string{"remove", "--user", "custom"}, commands.CmdRemove},
		{[]string{"--yes", "doctor"}, commands.CmdDoctor},
		{[]string{"history", "--limit", "5"}, commands.CmdHistory},
		{[]string{"help"}, commands.CmdHelp},
		{[]string{"-h"}, commands.CmdHelp},
		{[]string{"--help"}, commands.CmdHelp},
	}
	for _, tt := range tests {
		o, err := parseArgs(tt.args)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, o.Command, tt.args)
	}
}

func TestParseArgsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"upgrade"},
		{"install", "remove"},
		{"--user"},
		{"--port", "nine"},
		{"--bogus"},
	} {
		_, err := parseArgs(args)
		require.Error(t, err, args)
		assert.True(t, models.IsCode(err, models.CodeUsage), args)
		_, code := models.FormatForUser(err)
		assert.Equal(t, models.ExitFatal, code)
	}
}

func TestBuildConfigFlags(t *testing.T) {
	o, err := parseArgs([]string{"install", "--user", "custom", "--port", "9900", noConfig(t)})
	require.NoError(t, err)

	cfg, err := buildConfig(o)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.ServiceUser)
	assert.Equal(t, "custom", cfg.ServiceGroup)
	assert.Equal(t, 9900, cfg.Port)
	assert.Equal(t, "/etc/systemd/system/custom.service", cfg.UnitFilePath())
	assert.False(t, cfg.AssumeYes)
}

func TestBuildConfigDefaults(t *testing.T) {
	o, err := parseArgs([]string{"-y", noConfig(t)})
	require.NoError(t, err)

	cfg, err := buildConfig(o)
	require.NoError(t, err)

	want := models.DefaultConfig()
	want.AssumeYes = true
	assert.Equal(t, want, cfg)
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user: metrics\ngroup: monitoring\nport: 9200\n"), 0o600))

	o, err := parseArgs([]string{"--config", path, "--port", "9300"})
	require.NoError(t, err)
	cfg, err := buildConfig(o)
	require.NoError(t, err)
	assert.Equal(t, "metrics", cfg.ServiceUser)
	assert.Equal(t, "monitoring", cfg.ServiceGroup)
	assert.Equal(t, 9300, cfg.Port)

	o, err = parseArgs([]string{"--config", path, "--user", "other"})
	require.NoError(t, err)
	cfg, err = buildConfig(o)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.ServiceUser)
	assert.Equal(t, "monitoring", cfg.ServiceGroup)
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	// a flag value swallowed by --user
	o, err := parseArgs([]string{"--user", "--port", noConfig(t)})
	require.NoError(t, err)
	_, err = buildConfig(o)
	assert.True(t, models.IsCode(err, models.CodeConfigInvalid))

	o, err = parseArgs([]string{"--port", "70000", noConfig(t)})
	require.NoError(t, err)
	_, err = buildConfig(o)
	assert.True(t, models.IsCode(err, models.CodeConfigInvalid))

	o, err = parseArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	_, err = buildConfig(o)
	assert.True(t, models.IsCode(err, models.CodeConfigInvalid))
}
