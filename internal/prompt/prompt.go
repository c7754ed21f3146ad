// Package prompt asks the operator for consent before destructive or
// host-changing steps.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer answers yes/no questions.
type Confirmer interface {
	Confirm(question string) bool
}

// Terminal asks on stdin/stdout. When stdin is not a terminal it answers no
// without blocking on a read. Once its context is done every question is
// answered no.
type Terminal struct {
	ctx         context.Context
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func NewTerminal() *Terminal {
	return &Terminal{
		ctx:         context.Background(),
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewReader builds a Terminal over arbitrary streams, treated as interactive.
func NewReader(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{ctx: context.Background(), in: bufio.NewReader(in), out: out, interactive: true}
}

// WithContext makes pending and later questions give up when ctx is done.
func (t *Terminal) WithContext(ctx context.Context) *Terminal {
	t.ctx = ctx
	return t
}

func (t *Terminal) Confirm(question string) bool {
	fmt.Fprintf(t.out, "%s [y/N]: ", question)
	if !t.interactive {
		fmt.Fprintln(t.out, "no (stdin is not a terminal, use --yes to accept)")
		return false
	}

	if t.ctx.Err() != nil {
		fmt.Fprintln(t.out)
		return false
	}

	// The read cannot be interrupted, so it is left behind on cancel. The
	// context stays done, so nothing reads from t.in again.
	answer := make(chan string, 1)
	go func() {
		ans, _ := t.in.ReadString('\n')
		answer <- ans
	}()

	select {
	case ans := <-answer:
		ans = strings.TrimSpace(strings.ToLower(ans))
		return ans == "y" || ans == "yes"
	case <-t.ctx.Done():
		fmt.Fprintln(t.out)
		return false
	}
}

// AssumeYes accepts everything (--yes).
type AssumeYes struct{}

func (AssumeYes) Confirm(string) bool { return true }

// Deny refuses everything.
type Deny struct{}

func (Deny) Confirm(string) bool { return false }

// Func adapts a function to Confirmer.
type Func func(question string) bool

func (f Func) Confirm(question string) bool { return f(question) }
