// Package executor is the single point through which nxsetup invokes
// external programs (package managers, systemctl, firewall tools, useradd).
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError is returned when a command ran but exited nonzero, or could not
// be started at all (ExitCode is -1 then).
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeOf returns the exit code carried by err, or -1.
func ExitCodeOf(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode
	}
	return -1
}

// Executor runs external programs.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// RunEnv is Run with extra KEY=VALUE pairs added to the inherited
	// environment.
	RunEnv(ctx context.Context, env []string, name string, args ...string) (Result, error)
	LookPath(name string) (string, error)
}

// Local runs commands on this host with os/exec.
type Local struct {
	timeout time.Duration
	log     *logrus.Entry
}

// New returns a Local executor. A zero timeout means commands are only
// bounded by the caller's context.
func New(timeout time.Duration, log *logrus.Entry) *Local {
	return &Local{timeout: timeout, log: log}
}

func (l *Local) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return l.RunEnv(ctx, nil, name, args...)
}

func (l *Local) RunEnv(ctx context.Context, env []string, name string, args ...string) (Result, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	line := CommandLine(name, args...)
	if l.log != nil {
		l.log.WithFields(logrus.Fields{"command": line, "env": env}).Debug("running command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return res, &ExitError{Command: line, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
}

func (l *Local) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// CommandLine renders a command for logs and error messages.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
