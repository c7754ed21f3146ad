// Package executortest provides a recording Executor for tests.
package executortest

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"nxsetup/internal/executor"
)

// Handler answers a command. args excludes the command name.
type Handler func(args []string) (executor.Result, error)

// Fake records every call and answers from handlers registered by command
// line prefix. The longest matching prefix wins; unmatched commands succeed
// with empty output.
type Fake struct {
	mu       sync.Mutex
	calls    []string
	envs     map[int][]string // call index -> extra environment
	handlers map[string]Handler
	paths    map[string]string
}

func New() *Fake {
	return &Fake{
		envs:     map[int][]string{},
		handlers: map[string]Handler{},
		paths:    map[string]string{},
	}
}

// On registers h for every command line starting with prefix (whole words).
func (f *Fake) On(prefix string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[prefix] = h
	return f
}

// OnOutput answers prefix with a successful result printing stdout.
func (f *Fake) OnOutput(prefix, stdout string) *Fake {
	return f.On(prefix, func([]string) (executor.Result, error) {
		return executor.Result{Stdout: stdout}, nil
	})
}

// OnExit makes prefix fail with the given exit code.
func (f *Fake) OnExit(prefix string, code int) *Fake {
	return f.On(prefix, Exit(prefix, code, ""))
}

// Available makes LookPath find the given tools under /usr/bin.
func (f *Fake) Available(names ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		f.paths[n] = "/usr/bin/" + n
	}
	return f
}

// Unavailable removes tools from the LookPath answers.
func (f *Fake) Unavailable(names ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		delete(f.paths, n)
	}
	return f
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) (executor.Result, error) {
	return f.RunEnv(ctx, nil, name, args...)
}

func (f *Fake) RunEnv(_ context.Context, env []string, name string, args ...string) (executor.Result, error) {
	line := executor.CommandLine(name, args...)

	f.mu.Lock()
	if len(env) > 0 {
		f.envs[len(f.calls)] = append([]string(nil), env...)
	}
	f.calls = append(f.calls, line)
	var (
		best    Handler
		bestLen = -1
	)
	for prefix, h := range f.handlers {
		if (line == prefix || strings.HasPrefix(line, prefix+" ")) && len(prefix) > bestLen {
			best, bestLen = h, len(prefix)
		}
	}
	f.mu.Unlock()

	if best == nil {
		return executor.Result{}, nil
	}
	return best(args)
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Calls returns the command lines run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsWithPrefix filters Calls by command line prefix.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Calls() {
		if c == prefix || strings.HasPrefix(c, prefix+" ") {
			out = append(out, c)
		}
	}
	return out
}

// EnvOf returns the extra environment of the last call to line.
func (f *Fake) EnvOf(line string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i] == line {
			return f.envs[i]
		}
	}
	return nil
}

// Reset forgets the recorded calls but keeps handlers.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.envs = map[int][]string{}
}

// Exit builds a handler failing with code and stderr.
func Exit(command string, code int, stderr string) Handler {
	return func(args []string) (executor.Result, error) {
		res := executor.Result{Stderr: stderr, ExitCode: code}
		return res, &executor.ExitError{Command: command, ExitCode: code, Stderr: stderr}
	}
}
