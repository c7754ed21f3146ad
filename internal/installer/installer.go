// Package installer runs the ordered install and remove flows for the
// node_exporter service.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"nxsetup/internal/executor"
	"nxsetup/internal/journal"
	"nxsetup/internal/models"
	"nxsetup/internal/platform"
	"nxsetup/internal/prompt"
	"nxsetup/internal/release"
	"nxsetup/internal/servicemgr"
	"nxsetup/internal/system"
	"nxsetup/internal/textfile"
	"nxsetup/internal/unitfile"
)

// BinaryName is the executable inside the release tarball.
const BinaryName = "node_exporter"

type Resolver interface {
	Resolve(ctx context.Context) error
}

type Releases interface {
	Latest(ctx context.Context) (*release.Release, error)
	Download(ctx context.Context, url, dest string) error
	VerifyChecksum(ctx context.Context, rel *release.Release, asset release.Asset, path string) error
}

type Firewall interface {
	Open(ctx context.Context, port int) error
	Close(ctx context.Context, port int) error
}

type Accounts interface {
	UserExists(ctx context.Context, name string) (bool, error)
	GroupExists(ctx context.Context, name string) (bool, error)
	EnsureGroup(ctx context.Context, group string) error
	EnsureUser(ctx context.Context, name, group, home string) error
	DeleteUser(ctx context.Context, name string) error
	DeleteGroup(ctx context.Context, group string) error
}

// Deps are the collaborators the flows drive. Journal may be nil.
type Deps struct {
	Exec     executor.Executor
	Confirm  prompt.Confirmer
	Root     system.RootChecker
	Resolver Resolver
	Releases Releases
	Services servicemgr.Manager
	Firewall Firewall
	Accounts Accounts
	Journal  journal.Recorder
	Host     func(ctx context.Context) platform.HostInfo
	WorkDir  string
	Log      *logrus.Entry
}

// Report summarizes a finished run for the operator.
type Report struct {
	Action        string
	Config        models.Config
	Release       string
	Reconciled    bool // install removed a previous installation first
	Discovered    bool // remove read its settings from an existing unit file
	StatusCommand string
	MetricsURL    string
}

type Installer struct {
	cfg models.Config
	d   Deps
	log *logrus.Entry

	tag         platform.Tag
	preflighted bool
	selinux     func() bool
	now         func() time.Time
}

func New(cfg models.Config, d Deps) *Installer {
	if d.Host == nil {
		d.Host = platform.Host
	}
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Installer{
		cfg:     cfg,
		d:       d,
		log:     d.Log,
		selinux: selinuxEnforcing,
		now:     time.Now,
	}
}

// Preflight checks platform, privileges and required tools, in that order.
// It runs at most once per Installer.
func (i *Installer) Preflight(ctx context.Context) error {
	if i.preflighted {
		return nil
	}

	host := i.d.Host(ctx)
	tag, err := platform.Detect(host.OS, host.Arch)
	if err != nil {
		return models.Wrap(models.CodePlatformUnsupported, "unsupported platform", err).
			WithHint("node_exporter releases are installed on linux-amd64 hosts only")
	}
	i.tag = tag
	i.log.WithField("platform", tag).Debug("platform detected")

	if i.d.Root == nil || !i.d.Root.IsRoot() {
		return models.NewCLIError(models.CodeNotRoot, "this command must be run as root").
			WithHint("re-run with sudo")
	}

	if err := i.d.Resolver.Resolve(ctx); err != nil {
		return err
	}

	i.preflighted = true
	return nil
}

// Install brings the host to a freshly installed state. A previous
// installation is removed first.
func (i *Installer) Install(ctx context.Context) (rep Report, err error) {
	cfg := i.cfg
	rep = Report{
		Action:        journal.ActionInstall,
		Config:        cfg,
		StatusCommand: "systemctl status " + cfg.UnitName(),
		MetricsURL:    cfg.MetricsURL(),
	}

	if err := i.Preflight(ctx); err != nil {
		return rep, err
	}

	defer func() {
		outcome, detail := journal.OutcomeSuccess, ""
		if err != nil {
			outcome, detail = journal.OutcomeFailed, err.Error()
		}
		i.record(journal.Entry{
			Action:  journal.ActionInstall,
			User:    cfg.ServiceUser,
			Group:   cfg.ServiceGroup,
			Port:    cfg.Port,
			Release: rep.Release,
			Outcome: outcome,
			Detail:  detail,
		})
	}()

	if i.previousInstallation() {
		i.log.WithField("unit", cfg.UnitName()).Info("previous installation found, removing it first")
		if _, err := i.remove(ctx); err != nil {
			return rep, err
		}
		rep.Reconciled = true
	}

	if err := i.step(ctx, "ensure group", func(ctx context.Context) error {
		return i.d.Accounts.EnsureGroup(ctx, cfg.ServiceGroup)
	}); err != nil {
		return rep, err
	}
	if err := i.step(ctx, "ensure user", func(ctx context.Context) error {
		return i.d.Accounts.EnsureUser(ctx, cfg.ServiceUser, cfg.ServiceGroup, cfg.HomeDir)
	}); err != nil {
		return rep, err
	}

	tagName, err := i.installBinary(ctx)
	if err != nil {
		return rep, err
	}
	rep.Release = tagName

	if err := i.step(ctx, "write unit file", i.writeUnit); err != nil {
		return rep, err
	}
	if err := i.step(ctx, "daemon reload", i.d.Services.DaemonReload); err != nil {
		return rep, err
	}
	if err := i.step(ctx, "open firewall port", func(ctx context.Context) error {
		return i.d.Firewall.Open(ctx, cfg.Port)
	}); err != nil {
		return rep, err
	}
	if err := i.step(ctx, "enable service", func(ctx context.Context) error {
		return i.d.Services.Enable(ctx, cfg.UnitName())
	}); err != nil {
		return rep, err
	}
	if err := i.step(ctx, "start service", func(ctx context.Context) error {
		return i.d.Services.Start(ctx, cfg.UnitName())
	}); err != nil {
		return rep, err
	}

	if cfg.TextfileDir != "" {
		err := textfile.Write(cfg.TextfileDir, textfile.Info{
			Release:     tagName,
			User:        cfg.ServiceUser,
			Group:       cfg.ServiceGroup,
			Port:        cfg.Port,
			InstalledAt: i.now(),
		})
		if err != nil {
			i.log.WithError(err).Warn("could not write textfile metrics")
		}
	}

	i.log.WithFields(logrus.Fields{
		"release": tagName,
		"unit":    cfg.UnitName(),
		"port":    cfg.Port,
	}).Info("node_exporter installed")
	return rep, nil
}

// previousInstallation reports whether a binary or unit file from an
// earlier install is present.
func (i *Installer) previousInstallation() bool {
	if _, err := i.d.Exec.LookPath(BinaryName); err == nil {
		return true
	}
	return system.Exists(i.cfg.BinaryPath) || system.Exists(i.cfg.UnitFilePath())
}

func (i *Installer) installBinary(ctx context.Context) (string, error) {
	cfg := i.cfg

	rel, err := i.d.Releases.Latest(ctx)
	if err != nil {
		return "", models.Wrap(models.CodeReleaseLookup, "look up latest release", err)
	}
	asset, err := release.SelectAsset(rel, string(i.tag))
	if err != nil {
		return "", models.Wrap(models.CodeReleaseLookup, "select release asset", err)
	}
	i.log.WithFields(logrus.Fields{"release": rel.TagName, "asset": asset.Name}).Info("downloading release")

	dctx := ctx
	if cfg.Timeouts.Download > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Download)
		defer cancel()
	}

	archive := filepath.Join(i.d.WorkDir, filepath.Base(asset.Name))
	if err := i.d.Releases.Download(dctx, asset.BrowserDownloadURL, archive); err != nil {
		return "", models.Wrap(models.CodeDownload, "download "+asset.Name, err)
	}

	switch err := i.d.Releases.VerifyChecksum(dctx, rel, asset, archive); {
	case errors.Is(err, release.ErrNoChecksum):
		i.log.WithField("asset", asset.Name).Info("no published checksum, skipping verification")
	case err != nil:
		return "", models.Wrap(models.CodeDownload, "verify "+asset.Name, err)
	}

	var bin string
	if err := i.step(ctx, "extract binary", func(context.Context) error {
		var xerr error
		bin, xerr = release.ExtractBinary(archive, BinaryName, i.d.WorkDir)
		return xerr
	}); err != nil {
		return "", err
	}

	if err := i.step(ctx, "install binary", func(ctx context.Context) error {
		if err := os.MkdirAll(filepath.Dir(cfg.BinaryPath), 0o755); err != nil {
			return err
		}
		_, err := i.d.Exec.Run(ctx, "install",
			"-o", cfg.ServiceUser,
			"-g", cfg.ServiceGroup,
			"-m", "0755",
			bin, cfg.BinaryPath,
		)
		return err
	}); err != nil {
		return "", err
	}

	if i.selinux() {
		if err := restoreContext(ctx, i.d.Exec, cfg.BinaryPath); err != nil {
			i.log.WithError(err).Warn("could not restore SELinux context on binary")
		}
	}
	return rel.TagName, nil
}

func (i *Installer) writeUnit(context.Context) error {
	if err := os.MkdirAll(i.cfg.UnitDir, 0o755); err != nil {
		return err
	}
	path := i.cfg.UnitFilePath()
	if err := os.WriteFile(path, unitfile.Render(i.cfg), 0o644); err != nil {
		return err
	}
	i.log.WithField("path", path).Info("unit file written")
	return nil
}

// step runs fn and classifies a plain error as STEP_FAILED.
func (i *Installer) step(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return models.Wrap(models.CodeStepFailed, "interrupted before "+name, err)
	}
	i.log.WithField("step", name).Debug("running step")
	if err := fn(ctx); err != nil {
		var ce *models.CLIError
		if errors.As(err, &ce) {
			return err
		}
		return models.Wrap(models.CodeStepFailed, name, err)
	}
	return nil
}

func (i *Installer) record(e journal.Entry) {
	if i.d.Journal == nil {
		return
	}
	if err := i.d.Journal.Record(e); err != nil {
		i.log.WithError(err).Warn(fmt.Sprintf("could not record %s in journal", e.Action))
	}
}
