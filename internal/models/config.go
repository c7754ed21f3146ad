package models

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

const (
	DefaultServiceUser = "node_exporter"
	DefaultPort        = 9100
	DefaultBinaryPath  = "/usr/local/bin/node_exporter"
	DefaultUnitDir     = "/etc/systemd/system"
	DefaultHomeDir     = "/var/lib/node_exporter"
	DefaultReleaseURL  = "https://api.github.com/repos/prometheus/node_exporter/releases/latest"
	DefaultJournalPath = "/var/lib/nxsetup/journal.db"
	DefaultLogFile     = "/var/log/nxsetup/nxsetup.log"

	ServiceManagerSystemctl = "systemctl"
	ServiceManagerDBus      = "dbus"
)

// accountNameRe matches names useradd/groupadd accept on common distributions.
var accountNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

// Timeouts bounds every blocking operation the installer performs.
type Timeouts struct {
	HTTP         time.Duration // single release API request
	Download     time.Duration // whole artifact download, retries included
	RetryElapsed time.Duration // total backoff budget for a retried request
	Command      time.Duration // single external command
}

// Config is built once at startup from defaults, the optional config file and
// command line flags. It is passed by value and never modified afterwards.
type Config struct {
	ServiceUser  string
	ServiceGroup string
	Port         int

	BinaryPath string
	UnitDir    string
	HomeDir    string

	ReleaseURL     string
	ServiceManager string
	TextfileDir    string // empty disables the textfile metrics
	JournalPath    string
	LogFile        string
	AssumeYes      bool

	Timeouts Timeouts

	RequiredTools []string
	// Packages maps a package manager name (apt, dnf, yum) to tool -> package.
	Packages map[string]map[string]string
}

// DefaultConfig returns a fresh copy of the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ServiceUser:    DefaultServiceUser,
		ServiceGroup:   DefaultServiceUser,
		Port:           DefaultPort,
		BinaryPath:     DefaultBinaryPath,
		UnitDir:        DefaultUnitDir,
		HomeDir:        DefaultHomeDir,
		ReleaseURL:     DefaultReleaseURL,
		ServiceManager: ServiceManagerSystemctl,
		JournalPath:    DefaultJournalPath,
		LogFile:        DefaultLogFile,
		Timeouts: Timeouts{
			HTTP:         30 * time.Second,
			Download:     10 * time.Minute,
			RetryElapsed: 2 * time.Minute,
			Command:      5 * time.Minute,
		},
		RequiredTools: []string{"systemctl", "useradd", "groupadd", "userdel", "groupdel", "getent", "install"},
		Packages: map[string]map[string]string{
			"apt": {
				"systemctl": "systemd",
				"useradd":   "passwd",
				"groupadd":  "passwd",
				"userdel":   "passwd",
				"groupdel":  "passwd",
				"getent":    "libc-bin",
				"install":   "coreutils",
			},
			"dnf": rpmPackages(),
			"yum": rpmPackages(),
		},
	}
}

func rpmPackages() map[string]string {
	return map[string]string{
		"systemctl": "systemd",
		"useradd":   "shadow-utils",
		"groupadd":  "shadow-utils",
		"userdel":   "shadow-utils",
		"groupdel":  "shadow-utils",
		"getent":    "glibc-common",
		"install":   "coreutils",
	}
}

// UnitName is the systemd unit name, derived from the service user.
func (c Config) UnitName() string {
	return c.ServiceUser + ".service"
}

// UnitFilePath is where the unit description lives on disk.
func (c Config) UnitFilePath() string {
	return filepath.Join(c.UnitDir, c.UnitName())
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) MetricsURL() string {
	return fmt.Sprintf("http://localhost:%d/metrics", c.Port)
}

// WithIdentity returns a copy of c bound to another account and port.
func (c Config) WithIdentity(user, group string, port int) Config {
	c.ServiceUser = user
	c.ServiceGroup = group
	c.Port = port
	return c
}

// Validate reports the first invalid field as a CONFIG_INVALID error.
func (c Config) Validate() error {
	if !accountNameRe.MatchString(c.ServiceUser) {
		return Errorf(CodeConfigInvalid, "invalid user name %q", c.ServiceUser).
			WithHint("use lowercase letters, digits, '_' or '-', starting with a letter or '_'")
	}
	if !accountNameRe.MatchString(c.ServiceGroup) {
		return Errorf(CodeConfigInvalid, "invalid group name %q", c.ServiceGroup).
			WithHint("use lowercase letters, digits, '_' or '-', starting with a letter or '_'")
	}
	if c.Port < 1 || c.Port > 65535 {
		return Errorf(CodeConfigInvalid, "invalid port %d", c.Port).WithHint("port must be between 1 and 65535")
	}
	if !filepath.IsAbs(c.BinaryPath) {
		return Errorf(CodeConfigInvalid, "binary path %q must be absolute", c.BinaryPath)
	}
	if !filepath.IsAbs(c.UnitDir) {
		return Errorf(CodeConfigInvalid, "unit directory %q must be absolute", c.UnitDir)
	}
	switch c.ServiceManager {
	case ServiceManagerSystemctl, ServiceManagerDBus:
	default:
		return Errorf(CodeConfigInvalid, "unknown service manager %q", c.ServiceManager).
			WithHint("use systemctl or dbus")
	}
	if c.TextfileDir != "" && !filepath.IsAbs(c.TextfileDir) {
		return Errorf(CodeConfigInvalid, "textfile directory %q must be absolute", c.TextfileDir)
	}
	return nil
}
