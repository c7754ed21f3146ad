package cmd

import (
	"errors"
	"io"

	"github.com/spf13/pflag"

	"nxsetup/cmd/commands"
	"nxsetup/internal/config"
	"nxsetup/internal/models"
	"nxsetup/internal/system"
)

// options is the parsed command line.
type options struct {
	Command        string
	User           string
	Group          string
	Port           int
	ConfigPath     string
	AssumeYes      bool
	ServiceManager string
	TextfileDir    string
	Limit          int
	LogLevel       string

	changed map[string]bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("nxsetup", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.StringVarP(&o.User, "user", "u", models.DefaultServiceUser, "service user")
	fs.StringVarP(&o.Group, "group", "g", "", "service group (defaults to the user)")
	fs.IntVarP(&o.Port, "port", "p", models.DefaultPort, "listen port")
	fs.StringVar(&o.ConfigPath, "config", system.ConfigFile, "YAML config file")
	fs.BoolVarP(&o.AssumeYes, "yes", "y", false, "answer yes to every prompt")
	fs.StringVar(&o.ServiceManager, "service-manager", models.ServiceManagerSystemctl, "systemctl | dbus")
	fs.StringVar(&o.TextfileDir, "textfile-dir", "", "node_exporter textfile collector directory")
	fs.IntVar(&o.Limit, "limit", 20, "history entries to show (0 for all)")
	fs.StringVar(&o.LogLevel, "log-level", "info", "debug | info | warn | error")
	return fs
}

// parseArgs reads flags and the optional command word. No command means
// install; -h/--help means help.
func parseArgs(args []string) (options, error) {
	var o options
	fs := newFlagSet(&o)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			o.Command = commands.CmdHelp
			return o, nil
		}
		return o, models.Wrap(models.CodeUsage, "invalid arguments", err).
			WithHint("run 'nxsetup help' for usage")
	}

	o.changed = map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { o.changed[f.Name] = true })

	rest := fs.Args()
	switch len(rest) {
	case 0:
		o.Command = commands.CmdInstall
	case 1:
		o.Command = rest[0]
	default:
		return o, models.Errorf(models.CodeUsage, "too many arguments: %v", rest).
			WithHint("run 'nxsetup help' for usage")
	}

	if !commands.Known(o.Command) {
		return o, models.Errorf(models.CodeUsage, "unknown command: %s", o.Command)
	}
	return o, nil
}

// buildConfig layers defaults, the config file and flags, then validates
// the result.
func buildConfig(o options) (models.Config, error) {
	f, err := config.Load(o.ConfigPath, o.changed["config"])
	if err != nil {
		return models.Config{}, models.Wrap(models.CodeConfigInvalid, "load "+o.ConfigPath, err)
	}
	cfg := f.Apply(models.DefaultConfig())

	if o.changed["user"] {
		cfg.ServiceUser = o.User
		if !o.changed["group"] && f.Group == nil {
			cfg.ServiceGroup = o.User
		}
	}
	if o.changed["group"] {
		cfg.ServiceGroup = o.Group
	}
	if o.changed["port"] {
		cfg.Port = o.Port
	}
	if o.changed["service-manager"] {
		cfg.ServiceManager = o.ServiceManager
	}
	if o.changed["textfile-dir"] {
		cfg.TextfileDir = o.TextfileDir
	}
	cfg.AssumeYes = o.AssumeYes

	if err := cfg.Validate(); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}
