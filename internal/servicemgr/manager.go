// Package servicemgr talks to systemd, either through systemctl or over
// D-Bus.
package servicemgr

import (
	"context"
	"fmt"

	"nxsetup/internal/executor"
	"nxsetup/internal/models"
)

// Manager controls systemd units.
type Manager interface {
	DaemonReload(ctx context.Context) error
	Enable(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	IsActive(ctx context.Context, unit string) bool
}

// New picks the implementation named by kind.
func New(kind string, exec executor.Executor, unitDir string) (Manager, error) {
	switch kind {
	case "", models.ServiceManagerSystemctl:
		return NewSystemctl(exec), nil
	case models.ServiceManagerDBus:
		return NewDBus(unitDir), nil
	default:
		return nil, fmt.Errorf("unknown service manager %q", kind)
	}
}

// Systemctl shells out to systemctl.
type Systemctl struct {
	exec executor.Executor
}

func NewSystemctl(exec executor.Executor) *Systemctl {
	return &Systemctl{exec: exec}
}

func (s *Systemctl) run(ctx context.Context, args ...string) error {
	_, err := s.exec.Run(ctx, "systemctl", args...)
	return err
}

func (s *Systemctl) DaemonReload(ctx context.Context) error {
	return s.run(ctx, "daemon-reload")
}

func (s *Systemctl) Enable(ctx context.Context, unit string) error {
	return s.run(ctx, "enable", unit)
}

func (s *Systemctl) Disable(ctx context.Context, unit string) error {
	return s.run(ctx, "disable", unit)
}

func (s *Systemctl) Start(ctx context.Context, unit string) error {
	return s.run(ctx, "start", unit)
}

func (s *Systemctl) Stop(ctx context.Context, unit string) error {
	return s.run(ctx, "stop", unit)
}

func (s *Systemctl) IsActive(ctx context.Context, unit string) bool {
	return s.run(ctx, "is-active", "--quiet", unit) == nil
}
