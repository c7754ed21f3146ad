package unitfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nxsetup/internal/models"
)

const defaultUnit = `[Unit]
Description=Prometheus Node Exporter
Wants=network-online.target
After=network-online.target

[Service]
User=node_exporter
Group=node_exporter
Type=simple
ExecStart=/usr/local/bin/node_exporter --web.listen-address=:9100
Restart=on-failure

[Install]
WantedBy=multi-user.target
`

func TestRenderDefault(t *testing.T) {
	assert.Equal(t, defaultUnit, string(Render(models.DefaultConfig())))
}

func TestRenderWithTextfileDir(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.TextfileDir = "/var/lib/node_exporter/textfile"

	out := string(Render(cfg))
	assert.Contains(t, out, "ExecStart=/usr/local/bin/node_exporter --web.listen-address=:9100 --collector.textfile.directory=/var/lib/node_exporter/textfile\n")
}

func TestParseStubUnit(t *testing.T) {
	stub := "User=alice\nGroup=alicegrp\nExecStart=/bin/node_exporter --web.listen-address=:9321\n"

	d, err := Parse(strings.NewReader(stub))
	require.NoError(t, err)
	assert.Equal(t, Discovered{User: "alice", Group: "alicegrp", Port: 9321}, d)
}

func TestParseRoundTrip(t *testing.T) {
	cfg := models.DefaultConfig().WithIdentity("custom", "monitoring", 9900)
	cfg.TextfileDir = "/srv/textfile"

	d, err := Parse(strings.NewReader(string(Render(cfg))))
	require.NoError(t, err)
	assert.Equal(t, Discovered{User: "custom", Group: "monitoring", Port: 9900}, d)
}

func TestParseGrammar(t *testing.T) {
	tests := []struct {
		name string
		unit string
		want Discovered
	}{
		{
			name: "whitespace around keys and values",
			unit: "  User = bob  \n\tGroup=  staff\nExecStart = /x --web.listen-address=0.0.0.0:9200 \n",
			want: Discovered{User: "bob", Group: "staff", Port: 9200},
		},
		{
			name: "space separated flag value",
			unit: "ExecStart=/x --web.listen-address :9300",
			want: Discovered{Port: 9300},
		},
		{
			name: "single dash flag and ipv6 address",
			unit: "ExecStart=/x -web.listen-address=[::]:9400",
			want: Discovered{Port: 9400},
		},
		{
			name: "quoted value",
			unit: `ExecStart=/x "--web.listen-address=:9500"`,
			want: Discovered{Port: 9500},
		},
		{
			name: "comments and sections are skipped",
			unit: "# User=ghost\n; Group=ghost\n[Service]\nUser=real\n",
			want: Discovered{User: "real"},
		},
		{
			name: "first occurrence wins",
			unit: "User=first\nUser=second\n",
			want: Discovered{User: "first"},
		},
		{
			name: "keys are case sensitive",
			unit: "user=lower\nGROUP=upper\n",
			want: Discovered{},
		},
		{
			name: "no listen flag",
			unit: "ExecStart=/usr/local/bin/node_exporter --collector.systemd",
			want: Discovered{},
		},
		{
			name: "listen address without port",
			unit: "ExecStart=/x --web.listen-address=localhost",
			want: Discovered{},
		},
		{
			name: "port out of range",
			unit: "ExecStart=/x --web.listen-address=:99999",
			want: Discovered{},
		},
		{
			name: "dangling flag",
			unit: "ExecStart=/x --web.listen-address",
			want: Discovered{},
		},
		{
			name: "similar flag is not the listen flag",
			unit: "ExecStart=/x --web.listen-address-extra=:1234",
			want: Discovered{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(strings.NewReader(tt.unit))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestApplyOverridesOnlyPresentFields(t *testing.T) {
	cfg := models.DefaultConfig().WithIdentity("custom", "custom", 9100)

	got := Discovered{Port: 9900}.Apply(cfg)
	assert.Equal(t, "custom", got.ServiceUser)
	assert.Equal(t, "custom", got.ServiceGroup)
	assert.Equal(t, 9900, got.Port)

	got = Discovered{User: "alice", Group: "alicegrp", Port: 9321}.Apply(cfg)
	assert.Equal(t, "alice", got.ServiceUser)
	assert.Equal(t, "alicegrp", got.ServiceGroup)
	assert.Equal(t, 9321, got.Port)

	assert.Equal(t, cfg, Discovered{}.Apply(cfg))
	assert.True(t, Discovered{}.Empty())
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node_exporter.service")

	_, err := Discover(path)
	require.ErrorIs(t, err, ErrNoUnitFile)

	require.NoError(t, os.WriteFile(path, []byte(defaultUnit), 0o644))
	d, err := Discover(path)
	require.NoError(t, err)
	assert.Equal(t, Discovered{User: "node_exporter", Group: "node_exporter", Port: 9100}, d)
}
