package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"nxsetup/cmd/commands"
	"nxsetup/internal/logging"
	"nxsetup/internal/models"
)

// Execute runs the main execution flow
func Execute() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if models.IsCode(err, models.CodeUsage) {
			printHelp()
		}
		commands.Fatal(err)
	}
	if opts.Command == commands.CmdHelp {
		printHelp()
		return
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		commands.Fatal(err)
	}

	// read-only commands may run unprivileged, keep them off the log file
	logFile := cfg.LogFile
	if !commands.Mutates(opts.Command) {
		logFile = ""
	}
	if err := logging.SetupLogger(opts.LogLevel, logFile); err != nil {
		commands.Fatal(models.Wrap(models.CodeUsage, "invalid --log-level", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = commands.Run(ctx, opts.Command, cfg, commands.Options{Limit: opts.Limit})
	stop()

	if err != nil {
		commands.Fatal(err)
	}
}
