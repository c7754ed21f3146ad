package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"nxsetup/internal/deps"
	"nxsetup/internal/executor"
	"nxsetup/internal/firewall"
	"nxsetup/internal/logging"
	"nxsetup/internal/models"
	"nxsetup/internal/platform"
	"nxsetup/internal/prompt"
	"nxsetup/internal/servicemgr"
	"nxsetup/internal/system"
	"nxsetup/internal/unitfile"
)

func runDoctor(ctx context.Context, cfg models.Config, w io.Writer) error {
	exec := executor.New(cfg.Timeouts.Command, logging.Component("executor"))
	return doctor(ctx, cfg, exec, platform.Host(ctx), system.EUIDChecker{}, w)
}

// doctor prints what install or remove would work with. It changes nothing.
func doctor(ctx context.Context, cfg models.Config, exec executor.Executor, host platform.HostInfo, root system.RootChecker, w io.Writer) error {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	log := logrus.NewEntry(quiet)

	fmt.Fprintln(w, "nxsetup Doctor Report")
	fmt.Fprintln(w, "---------------------")
	tag, err := platform.Detect(host.OS, host.Arch)
	if err != nil {
		fmt.Fprintf(w, "Platform          : %s/%s (unsupported: %v)\n", host.OS, host.Arch, err)
	} else {
		fmt.Fprintf(w, "Platform          : %s\n", tag)
	}
	fmt.Fprintf(w, "Running as root   : %s (uid=%d)\n", yesNo(root.IsRoot()), os.Geteuid())

	fmt.Fprintln(w, "\nDependencies")
	resolver := deps.NewResolver(exec, prompt.Deny{}, cfg.RequiredTools, cfg.Packages, log)
	if missing := resolver.Missing(); len(missing) > 0 {
		fmt.Fprintf(w, "  Missing tools   : %s\n", strings.Join(missing, ", "))
	} else {
		fmt.Fprintln(w, "  Missing tools   : none")
	}
	if pm, ok := resolver.DetectManager(); ok {
		fmt.Fprintf(w, "  Package manager : %s\n", pm.Binary)
	} else {
		fmt.Fprintln(w, "  Package manager : none found")
	}

	fmt.Fprintln(w, "\nFirewall")
	fmt.Fprintf(w, "  Active manager  : %s\n", firewall.New(exec, log).Detect(ctx))

	fmt.Fprintln(w, "\nInstallation")
	fmt.Fprintf(w, "  Unit            : %s\n", cfg.UnitName())
	found, err := unitfile.Discover(cfg.UnitFilePath())
	switch {
	case errors.Is(err, unitfile.ErrNoUnitFile):
		fmt.Fprintf(w, "  Unit file       : %s (absent)\n", cfg.UnitFilePath())
	case err != nil:
		fmt.Fprintf(w, "  Unit file       : %s (unreadable: %v)\n", cfg.UnitFilePath(), err)
	default:
		d := found.Apply(cfg)
		fmt.Fprintf(w, "  Unit file       : %s\n", cfg.UnitFilePath())
		fmt.Fprintf(w, "  Discovered      : user=%s group=%s port=%d\n", d.ServiceUser, d.ServiceGroup, d.Port)
	}
	if services, err := servicemgr.New(cfg.ServiceManager, exec, cfg.UnitDir); err == nil {
		fmt.Fprintf(w, "  Service active  : %s\n", yesNo(services.IsActive(ctx, cfg.UnitName())))
	}

	fmt.Fprintln(w, "\nBinary")
	checkPath(w, cfg.BinaryPath)

	fmt.Fprintln(w, "\nJournal")
	checkPath(w, cfg.JournalPath)
	return nil
}

func checkPath(w io.Writer, path string) {
	fmt.Fprintf(w, "  Path            : %s\n", path)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  Exists          : no (%v)\n", err)
		return
	}
	fmt.Fprintln(w, "  Exists          : yes")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
