package installer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"nxsetup/internal/journal"
	"nxsetup/internal/models"
	"nxsetup/internal/textfile"
	"nxsetup/internal/unitfile"
)

// Remove tears the installation down. Settings found in the existing unit
// file take precedence over the configured user, group and port. Nothing
// installed is not an error.
func (i *Installer) Remove(ctx context.Context) (Report, error) {
	if err := i.Preflight(ctx); err != nil {
		return Report{Action: journal.ActionRemove, Config: i.cfg}, err
	}
	return i.remove(ctx)
}

func (i *Installer) remove(ctx context.Context) (Report, error) {
	cfg := i.cfg
	// The unit is located by the configured user; discovery may rename the
	// account but never the file being removed.
	unitPath, unitName := cfg.UnitFilePath(), cfg.UnitName()
	rep := Report{Action: journal.ActionRemove}

	found, err := unitfile.Discover(unitPath)
	switch {
	case errors.Is(err, unitfile.ErrNoUnitFile):
		i.log.WithField("path", unitPath).Info("no unit file found, discovery skipped")
	case err != nil:
		i.log.WithError(err).Warn("could not read unit file, discovery skipped")
	default:
		cfg = found.Apply(cfg)
		rep.Discovered = !found.Empty()
		i.log.WithFields(logrus.Fields{
			"user":  cfg.ServiceUser,
			"group": cfg.ServiceGroup,
			"port":  cfg.Port,
		}).Info("discovered existing installation")
	}
	rep.Config = cfg

	stages := []func(){
		func() {
			if err := i.d.Services.Stop(ctx, unitName); err != nil {
				i.log.WithError(err).Info("service was not stopped")
			}
		},
		func() {
			if err := i.d.Services.Disable(ctx, unitName); err != nil {
				i.log.WithError(err).Info("service was not disabled")
			}
		},
		func() {
			if err := i.d.Firewall.Close(ctx, cfg.Port); err != nil {
				i.log.WithError(err).Warn("firewall rule not removed")
			}
		},
		func() {
			for _, path := range []string{unitPath, cfg.BinaryPath} {
				removeFile(i.log, path)
			}
			if err := i.d.Services.DaemonReload(ctx); err != nil {
				i.log.WithError(err).Warn("daemon reload failed")
			}
		},
		func() {
			if cfg.TextfileDir == "" {
				return
			}
			if err := textfile.Remove(cfg.TextfileDir); err != nil {
				i.log.WithError(err).Warn("could not remove textfile metrics")
			}
		},
		func() {
			i.removeAccount(ctx, "user", cfg.ServiceUser, i.d.Accounts.UserExists, i.d.Accounts.DeleteUser)
		},
		func() {
			// userdel may already have taken a same-named group with it.
			i.removeAccount(ctx, "group", cfg.ServiceGroup, i.d.Accounts.GroupExists, i.d.Accounts.DeleteGroup)
		},
	}
	for _, run := range stages {
		if err := ctx.Err(); err != nil {
			return rep, i.interrupted(cfg, err)
		}
		run()
	}
	if err := ctx.Err(); err != nil {
		return rep, i.interrupted(cfg, err)
	}

	i.record(journal.Entry{
		Action:  journal.ActionRemove,
		User:    cfg.ServiceUser,
		Group:   cfg.ServiceGroup,
		Port:    cfg.Port,
		Outcome: journal.OutcomeSuccess,
	})
	i.log.WithField("unit", unitName).Info("node_exporter removed")
	return rep, nil
}

// interrupted journals a remove cut short by cancellation. Stages already
// run are not undone.
func (i *Installer) interrupted(cfg models.Config, err error) error {
	i.record(journal.Entry{
		Action:  journal.ActionRemove,
		User:    cfg.ServiceUser,
		Group:   cfg.ServiceGroup,
		Port:    cfg.Port,
		Outcome: journal.OutcomeFailed,
		Detail:  err.Error(),
	})
	i.log.WithError(err).Warn("remove interrupted")
	return models.Wrap(models.CodeStepFailed, "remove interrupted", err)
}

// removeAccount asks before deleting. Declining or failing only skips the
// account.
func (i *Installer) removeAccount(
	ctx context.Context,
	kind, name string,
	exists func(context.Context, string) (bool, error),
	del func(context.Context, string) error,
) {
	log := i.log.WithField(kind, name)

	ok, err := exists(ctx, name)
	if err != nil {
		log.WithError(err).Warn("could not check " + kind)
		return
	}
	if !ok {
		log.Info(kind + " does not exist, nothing to remove")
		return
	}
	if !i.d.Confirm.Confirm(fmt.Sprintf("Remove system %s %q?", kind, name)) {
		log.Info("keeping " + kind)
		return
	}
	if err := del(ctx, name); err != nil {
		log.WithError(err).Warn("could not remove " + kind)
		return
	}
	log.Info(kind + " removed")
}

func removeFile(log *logrus.Entry, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.WithField("path", path).Info("removed")
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", path).Debug("already absent")
	default:
		log.WithError(err).WithField("path", path).Warn("could not remove file")
	}
}
