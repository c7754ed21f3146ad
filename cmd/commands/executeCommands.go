package commands

import (
	"context"
	"os"

	"nxsetup/internal/models"
)

const (
	CmdInstall = "install"
	CmdRemove  = "remove"
	CmdDoctor  = "doctor"
	CmdHistory = "history"
	CmdHelp    = "help"
)

// Options carries flags that only some commands read.
type Options struct {
	Limit int
}

func Known(cmd string) bool {
	switch cmd {
	case CmdInstall, CmdRemove, CmdDoctor, CmdHistory, CmdHelp:
		return true
	}
	return false
}

// Mutates reports whether cmd changes the host.
func Mutates(cmd string) bool {
	return cmd == CmdInstall || cmd == CmdRemove
}

// Run dispatches one command. All scoped resources are released before it
// returns, so the caller may exit right after.
func Run(ctx context.Context, cmd string, cfg models.Config, opts Options) error {
	switch cmd {
	case CmdInstall:
		return runInstall(ctx, cfg, os.Stdout)
	case CmdRemove:
		return runRemove(ctx, cfg, os.Stdout)
	case CmdDoctor:
		return runDoctor(ctx, cfg, os.Stdout)
	case CmdHistory:
		return runHistory(cfg, opts.Limit, os.Stdout)
	default:
		return models.Errorf(models.CodeUsage, "unknown command: %s", cmd)
	}
}
