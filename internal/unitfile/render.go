// Package unitfile writes the systemd unit that supervises node_exporter and
// reads back the account and port from a unit written by an earlier install.
//
// The rendered layout is a persisted contract: removal of an existing install
// relies on Parse understanding every file Render has ever produced.
package unitfile

import (
	"bytes"
	"io"

	"github.com/coreos/go-systemd/v22/unit"

	"nxsetup/internal/models"
)

const (
	Description     = "Prometheus Node Exporter"
	ListenFlag      = "--web.listen-address"
	TextfileDirFlag = "--collector.textfile.directory"
)

// ExecStart builds the command line systemd runs.
func ExecStart(cfg models.Config) string {
	cmd := cfg.BinaryPath + " " + ListenFlag + "=" + cfg.ListenAddress()
	if cfg.TextfileDir != "" {
		cmd += " " + TextfileDirFlag + "=" + cfg.TextfileDir
	}
	return cmd
}

// Options lists the unit directives in file order.
func Options(cfg models.Config) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", Description),
		unit.NewUnitOption("Unit", "Wants", "network-online.target"),
		unit.NewUnitOption("Unit", "After", "network-online.target"),

		unit.NewUnitOption("Service", "User", cfg.ServiceUser),
		unit.NewUnitOption("Service", "Group", cfg.ServiceGroup),
		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "ExecStart", ExecStart(cfg)),
		unit.NewUnitOption("Service", "Restart", "on-failure"),

		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
}

// Render returns the unit file contents for cfg.
func Render(cfg models.Config) []byte {
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, unit.Serialize(Options(cfg)))
	return buf.Bytes()
}
