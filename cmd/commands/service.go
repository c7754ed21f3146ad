package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"nxsetup/internal/accounts"
	"nxsetup/internal/deps"
	"nxsetup/internal/executor"
	"nxsetup/internal/firewall"
	"nxsetup/internal/installer"
	"nxsetup/internal/journal"
	"nxsetup/internal/logging"
	"nxsetup/internal/models"
	"nxsetup/internal/platform"
	"nxsetup/internal/prompt"
	"nxsetup/internal/release"
	"nxsetup/internal/servicemgr"
	"nxsetup/internal/system"
)

// confirmer stops waiting for an answer once ctx is cancelled (Ctrl-C).
func confirmer(ctx context.Context, cfg models.Config) prompt.Confirmer {
	if cfg.AssumeYes {
		return prompt.AssumeYes{}
	}
	return prompt.NewTerminal().WithContext(ctx)
}

// withInstaller wires the real host collaborators, runs fn and releases the
// working directory and journal on every return path.
func withInstaller(ctx context.Context, cfg models.Config, fn func(*installer.Installer) error) error {
	work, err := system.NewWorkDir()
	if err != nil {
		return models.Wrap(models.CodeStepFailed, "create working directory", err)
	}
	defer work.Cleanup()

	exec := executor.New(cfg.Timeouts.Command, logging.Component("executor"))
	confirm := confirmer(ctx, cfg)

	services, err := servicemgr.New(cfg.ServiceManager, exec, cfg.UnitDir)
	if err != nil {
		return models.Wrap(models.CodeConfigInvalid, "service manager", err)
	}

	jr := journal.NewLazy(cfg.JournalPath)
	defer func() {
		if err := jr.Close(); err != nil {
			logging.Component("journal").WithError(err).Warn("could not close journal")
		}
	}()

	inst := installer.New(cfg, installer.Deps{
		Exec:     exec,
		Confirm:  confirm,
		Root:     system.EUIDChecker{},
		Resolver: deps.NewResolver(exec, confirm, cfg.RequiredTools, cfg.Packages, logging.Component("deps")),
		Releases: release.NewClient(release.Options{
			URL:             cfg.ReleaseURL,
			Token:           os.Getenv("GITHUB_TOKEN"),
			HTTPTimeout:     cfg.Timeouts.HTTP,
			RetryMaxElapsed: cfg.Timeouts.RetryElapsed,
		}, logging.Component("release")),
		Services: services,
		Firewall: firewall.New(exec, logging.Component("firewall")),
		Accounts: accounts.New(exec, logging.Component("accounts")),
		Journal:  jr,
		Host:     platform.Host,
		WorkDir:  work.Path,
		Log:      logging.Component("installer"),
	})
	return fn(inst)
}

func runInstall(ctx context.Context, cfg models.Config, w io.Writer) error {
	return withInstaller(ctx, cfg, func(inst *installer.Installer) error {
		rep, err := inst.Install(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "node_exporter %s installed as %s\n", rep.Release, rep.Config.UnitName())
		fmt.Fprintf(w, "  status : %s\n", rep.StatusCommand)
		fmt.Fprintf(w, "  metrics: %s\n", rep.MetricsURL)
		return nil
	})
}

func runRemove(ctx context.Context, cfg models.Config, w io.Writer) error {
	return withInstaller(ctx, cfg, func(inst *installer.Installer) error {
		rep, err := inst.Remove(ctx)
		if err != nil {
			return err
		}
		source := "configuration"
		if rep.Discovered {
			source = "unit file"
		}
		fmt.Fprintf(w, "node_exporter removed (user=%s group=%s port=%d from %s)\n",
			rep.Config.ServiceUser, rep.Config.ServiceGroup, rep.Config.Port, source)
		return nil
	})
}
