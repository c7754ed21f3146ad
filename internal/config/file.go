// Package config reads the optional YAML config file and merges it over the
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"nxsetup/internal/models"
)

// File mirrors the YAML document. Pointer and nil-able fields distinguish
// "not set" from a zero value.
type File struct {
	User           *string `yaml:"user"`
	Group          *string `yaml:"group"`
	Port           *int    `yaml:"port"`
	BinaryPath     *string `yaml:"binary_path"`
	UnitDir        *string `yaml:"unit_dir"`
	HomeDir        *string `yaml:"home_dir"`
	ReleaseURL     *string `yaml:"release_url"`
	ServiceManager *string `yaml:"service_manager"`
	TextfileDir    *string `yaml:"textfile_dir"`
	JournalPath    *string `yaml:"journal_path"`
	LogFile        *string `yaml:"log_file"`

	Timeouts struct {
		HTTP     *time.Duration `yaml:"http"`
		Download *time.Duration `yaml:"download"`
		Retry    *time.Duration `yaml:"retry"`
		Command  *time.Duration `yaml:"command"`
	} `yaml:"timeouts"`

	RequiredTools []string                     `yaml:"required_tools"`
	Packages      map[string]map[string]string `yaml:"packages"`
}

// Load reads path. A missing file yields an empty File unless required is
// set, which is the case when the path came from --config.
func Load(path string, required bool) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return f, nil
		}
		return f, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config yaml: %w", err)
	}

	return f, nil
}

// Apply returns base overridden by every field set in f. Package maps are
// merged per manager and tool.
func (f File) Apply(base models.Config) models.Config {
	cfg := base
	setString(&cfg.ServiceUser, f.User)
	setString(&cfg.ServiceGroup, f.Group)
	if f.User != nil && f.Group == nil && base.ServiceGroup == base.ServiceUser {
		cfg.ServiceGroup = *f.User
	}
	if f.Port != nil {
		cfg.Port = *f.Port
	}
	setString(&cfg.BinaryPath, f.BinaryPath)
	setString(&cfg.UnitDir, f.UnitDir)
	setString(&cfg.HomeDir, f.HomeDir)
	setString(&cfg.ReleaseURL, f.ReleaseURL)
	setString(&cfg.ServiceManager, f.ServiceManager)
	setString(&cfg.TextfileDir, f.TextfileDir)
	setString(&cfg.JournalPath, f.JournalPath)
	setString(&cfg.LogFile, f.LogFile)

	setDuration(&cfg.Timeouts.HTTP, f.Timeouts.HTTP)
	setDuration(&cfg.Timeouts.Download, f.Timeouts.Download)
	setDuration(&cfg.Timeouts.RetryElapsed, f.Timeouts.Retry)
	setDuration(&cfg.Timeouts.Command, f.Timeouts.Command)

	if len(f.RequiredTools) > 0 {
		cfg.RequiredTools = append([]string(nil), f.RequiredTools...)
	}
	if len(f.Packages) > 0 {
		cfg.Packages = mergePackages(base.Packages, f.Packages)
	}
	return cfg
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil && *v > 0 {
		*dst = *v
	}
}

func mergePackages(base, over map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(base)+len(over))
	for mgr, m := range base {
		out[mgr] = make(map[string]string, len(m))
		for tool, pkg := range m {
			out[mgr][tool] = pkg
		}
	}
	for mgr, m := range over {
		if out[mgr] == nil {
			out[mgr] = map[string]string{}
		}
		for tool, pkg := range m {
			out[mgr][tool] = pkg
		}
	}
	return out
}
