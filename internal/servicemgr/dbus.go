package servicemgr

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DBus controls units over the systemd D-Bus API, one connection per call.
type DBus struct {
	unitDir string
}

func NewDBus(unitDir string) *DBus {
	return &DBus{unitDir: unitDir}
}

func (d *DBus) with(ctx context.Context, fn func(*dbus.Conn) error) error {
	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (d *DBus) DaemonReload(ctx context.Context) error {
	return d.with(ctx, func(conn *dbus.Conn) error {
		return conn.ReloadContext(ctx)
	})
}

func (d *DBus) Enable(ctx context.Context, unit string) error {
	return d.with(ctx, func(conn *dbus.Conn) error {
		_, _, err := conn.EnableUnitFilesContext(ctx, []string{filepath.Join(d.unitDir, unit)}, false, true)
		return err
	})
}

func (d *DBus) Disable(ctx context.Context, unit string) error {
	return d.with(ctx, func(conn *dbus.Conn) error {
		_, err := conn.DisableUnitFilesContext(ctx, []string{unit}, false)
		return err
	})
}

func (d *DBus) Start(ctx context.Context, unit string) error {
	return d.with(ctx, func(conn *dbus.Conn) error {
		ch := make(chan string, 1)
		if _, err := conn.StartUnitContext(ctx, unit, "replace", ch); err != nil {
			return err
		}
		return waitJob(ctx, "start", unit, ch)
	})
}

func (d *DBus) Stop(ctx context.Context, unit string) error {
	return d.with(ctx, func(conn *dbus.Conn) error {
		ch := make(chan string, 1)
		if _, err := conn.StopUnitContext(ctx, unit, "replace", ch); err != nil {
			return err
		}
		return waitJob(ctx, "stop", unit, ch)
	})
}

func (d *DBus) IsActive(ctx context.Context, unit string) bool {
	active := false
	_ = d.with(ctx, func(conn *dbus.Conn) error {
		prop, err := conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
		if err != nil {
			return err
		}
		state, _ := prop.Value.Value().(string)
		active = state == "active"
		return nil
	})
	return active
}

func waitJob(ctx context.Context, op, unit string, ch <-chan string) error {
	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("%s %s: job %s", op, unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
