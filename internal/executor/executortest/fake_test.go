package executortest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nxsetup/internal/executor"
)

func TestFakeLongestPrefixWins(t *testing.T) {
	f := New().
		OnOutput("systemctl", "generic").
		OnExit("systemctl is-active", 3)

	res, err := f.Run(context.Background(), "systemctl", "daemon-reload")
	require.NoError(t, err)
	assert.Equal(t, "generic", res.Stdout)

	_, err = f.Run(context.Background(), "systemctl", "is-active", "--quiet", "firewalld")
	require.Error(t, err)
	assert.Equal(t, 3, executor.ExitCodeOf(err))

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl is-active --quiet firewalld",
	}, f.Calls())
}

func TestFakePrefixMatchesWholeWords(t *testing.T) {
	f := New().OnExit("ufw", 1)

	_, err := f.Run(context.Background(), "ufwx")
	assert.NoError(t, err)
	_, err = f.Run(context.Background(), "ufw", "status")
	assert.Error(t, err)
}

func TestFakeLookPath(t *testing.T) {
	f := New().Available("useradd", "getent")

	p, err := f.LookPath("useradd")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/useradd", p)

	f.Unavailable("useradd")
	_, err = f.LookPath("useradd")
	assert.Error(t, err)
}

func TestFakeCallsWithPrefixAndReset(t *testing.T) {
	f := New()
	_, _ = f.Run(context.Background(), "ufw", "allow", "9100/tcp")
	_, _ = f.Run(context.Background(), "systemctl", "start", "node_exporter.service")

	assert.Equal(t, []string{"ufw allow 9100/tcp"}, f.CallsWithPrefix("ufw"))

	f.Reset()
	assert.Empty(t, f.Calls())
}

func TestFakeRecordsEnv(t *testing.T) {
	f := New()
	_, _ = f.RunEnv(context.Background(), []string{"DEBIAN_FRONTEND=noninteractive"}, "apt-get", "update")
	_, _ = f.Run(context.Background(), "systemctl", "daemon-reload")

	assert.Equal(t, []string{"apt-get update", "systemctl daemon-reload"}, f.Calls())
	assert.Equal(t, []string{"DEBIAN_FRONTEND=noninteractive"}, f.EnvOf("apt-get update"))
	assert.Nil(t, f.EnvOf("systemctl daemon-reload"))

	f.Reset()
	assert.Nil(t, f.EnvOf("apt-get update"))
}
