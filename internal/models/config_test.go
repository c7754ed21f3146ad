package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDerivedValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "node_exporter", cfg.ServiceUser)
	assert.Equal(t, "node_exporter", cfg.ServiceGroup)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "node_exporter.service", cfg.UnitName())
	assert.Equal(t, "/etc/systemd/system/node_exporter.service", cfg.UnitFilePath())
	assert.Equal(t, ":9100", cfg.ListenAddress())
	assert.Equal(t, "http://localhost:9100/metrics", cfg.MetricsURL())
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfigReturnsIndependentCopies(t *testing.T) {
	a := DefaultConfig()
	a.Packages["apt"]["systemctl"] = "changed"
	a.RequiredTools[0] = "changed"

	b := DefaultConfig()
	assert.Equal(t, "systemd", b.Packages["apt"]["systemctl"])
	assert.Equal(t, "systemctl", b.RequiredTools[0])
}

func TestUnitPathFollowsUser(t *testing.T) {
	cfg := DefaultConfig().WithIdentity("custom", "customgrp", 9900)

	assert.Equal(t, "/etc/systemd/system/custom.service", cfg.UnitFilePath())
	assert.Equal(t, "customgrp", cfg.ServiceGroup)
	assert.Equal(t, 9900, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"flag swallowed as user", func(c *Config) { c.ServiceUser = "--port" }, "user"},
		{"uppercase group", func(c *Config) { c.ServiceGroup = "Nodes" }, "group"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port"},
		{"relative binary", func(c *Config) { c.BinaryPath = "bin/node_exporter" }, "binary"},
		{"relative unit dir", func(c *Config) { c.UnitDir = "systemd" }, "unit directory"},
		{"service manager", func(c *Config) { c.ServiceManager = "upstart" }, "service manager"},
		{"textfile dir", func(c *Config) { c.TextfileDir = "textfile" }, "textfile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeConfigInvalid))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
