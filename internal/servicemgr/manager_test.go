package servicemgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nxsetup/internal/executor/executortest"
	"nxsetup/internal/models"
)

func TestSystemctlCommands(t *testing.T) {
	fake := executortest.New()
	m := NewSystemctl(fake)
	ctx := context.Background()

	require.NoError(t, m.DaemonReload(ctx))
	require.NoError(t, m.Enable(ctx, "node_exporter.service"))
	require.NoError(t, m.Start(ctx, "node_exporter.service"))
	require.NoError(t, m.Stop(ctx, "node_exporter.service"))
	require.NoError(t, m.Disable(ctx, "node_exporter.service"))

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable node_exporter.service",
		"systemctl start node_exporter.service",
		"systemctl stop node_exporter.service",
		"systemctl disable node_exporter.service",
	}, fake.Calls())
}

func TestSystemctlErrorsPropagate(t *testing.T) {
	fake := executortest.New().OnExit("systemctl stop", 5)

	err := NewSystemctl(fake).Stop(context.Background(), "node_exporter.service")
	assert.Error(t, err)
}

func TestSystemctlIsActive(t *testing.T) {
	fake := executortest.New().OnExit("systemctl is-active --quiet stopped.service", 3)
	m := NewSystemctl(fake)

	assert.True(t, m.IsActive(context.Background(), "running.service"))
	assert.False(t, m.IsActive(context.Background(), "stopped.service"))
}

func TestNewSelectsImplementation(t *testing.T) {
	m, err := New(models.ServiceManagerSystemctl, executortest.New(), "/etc/systemd/system")
	require.NoError(t, err)
	assert.IsType(t, &Systemctl{}, m)

	m, err = New(models.ServiceManagerDBus, executortest.New(), "/etc/systemd/system")
	require.NoError(t, err)
	assert.IsType(t, &DBus{}, m)

	_, err = New("upstart", executortest.New(), "/etc/systemd/system")
	assert.Error(t, err)
}
