// Package accounts manages the system user and group the exporter runs as.
package accounts

import (
	"context"
	"fmt"
	"os/user"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"

	"nxsetup/internal/executor"
)

// getent exits 2 when the key is not in the database.
const getentNotFound = 2

// NoLoginShell is the login shell given to created service users.
const NoLoginShell = "/usr/sbin/nologin"

// OwnerFunc lists the PIDs of processes running as the named user.
type OwnerFunc func(ctx context.Context, username string) ([]int32, error)

type Manager struct {
	exec   executor.Executor
	log    *logrus.Entry
	owners OwnerFunc
}

func New(exec executor.Executor, log *logrus.Entry) *Manager {
	return &Manager{exec: exec, log: log, owners: ProcessOwners}
}

// WithOwners replaces the process lookup used when a delete fails.
func (m *Manager) WithOwners(fn OwnerFunc) *Manager {
	m.owners = fn
	return m
}

func (m *Manager) UserExists(ctx context.Context, name string) (bool, error) {
	return m.lookup(ctx, "passwd", name)
}

func (m *Manager) GroupExists(ctx context.Context, name string) (bool, error) {
	return m.lookup(ctx, "group", name)
}

func (m *Manager) lookup(ctx context.Context, db, name string) (bool, error) {
	_, err := m.exec.Run(ctx, "getent", db, name)
	if err == nil {
		return true, nil
	}
	if executor.ExitCodeOf(err) == getentNotFound {
		return false, nil
	}
	return false, fmt.Errorf("lookup %s %q: %w", db, name, err)
}

// EnsureGroup creates a system group unless it already exists.
func (m *Manager) EnsureGroup(ctx context.Context, group string) error {
	ok, err := m.GroupExists(ctx, group)
	if err != nil {
		return err
	}
	if ok {
		m.log.WithField("group", group).Info("group already exists")
		return nil
	}
	if _, err := m.exec.Run(ctx, "groupadd", "--system", group); err != nil {
		return fmt.Errorf("create group %q: %w", group, err)
	}
	m.log.WithField("group", group).Info("group created")
	return nil
}

// EnsureUser creates a system user with no login shell and no home
// directory on disk, primary group set to group.
func (m *Manager) EnsureUser(ctx context.Context, name, group, home string) error {
	ok, err := m.UserExists(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		m.log.WithField("user", name).Info("user already exists")
		return nil
	}
	_, err = m.exec.Run(ctx, "useradd",
		"--system",
		"--no-create-home",
		"--home-dir", home,
		"--shell", NoLoginShell,
		"--gid", group,
		name,
	)
	if err != nil {
		return fmt.Errorf("create user %q: %w", name, err)
	}
	m.log.WithFields(logrus.Fields{"user": name, "group": group}).Info("user created")
	return nil
}

// DeleteUser runs userdel. When it fails the error names the processes
// still running as the user, if any can be found.
func (m *Manager) DeleteUser(ctx context.Context, name string) error {
	if _, err := m.exec.Run(ctx, "userdel", name); err != nil {
		return m.withOwners(ctx, name, fmt.Errorf("remove user %q: %w", name, err))
	}
	return nil
}

func (m *Manager) DeleteGroup(ctx context.Context, group string) error {
	if _, err := m.exec.Run(ctx, "groupdel", group); err != nil {
		return fmt.Errorf("remove group %q: %w", group, err)
	}
	return nil
}

func (m *Manager) withOwners(ctx context.Context, name string, err error) error {
	if m.owners == nil {
		return err
	}
	pids, lerr := m.owners(ctx, name)
	if lerr != nil {
		m.log.WithError(lerr).Debug("could not list processes")
		return err
	}
	if len(pids) == 0 {
		return err
	}
	ids := make([]string, len(pids))
	for i, p := range pids {
		ids[i] = strconv.Itoa(int(p))
	}
	return fmt.Errorf("%w (processes still running as %s: %s)", err, name, strings.Join(ids, ", "))
}

// ProcessOwners scans the process table for processes whose real uid
// belongs to username.
func ProcessOwners(ctx context.Context, username string) ([]int32, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, err
	}
	uid, err := strconv.ParseInt(u.Uid, 10, 32)
	if err != nil {
		return nil, err
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var out []int32
	for _, p := range procs {
		uids, err := p.UidsWithContext(ctx)
		if err != nil || len(uids) == 0 {
			continue
		}
		if uids[0] == int32(uid) {
			out = append(out, p.Pid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
