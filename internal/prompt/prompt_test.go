package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTerminalConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := NewReader(strings.NewReader(tt.input), &out).Confirm("Remove user node_exporter?")
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Remove user node_exporter? [y/N]: ", out.String())
	}
}

func TestTerminalNonInteractiveDenies(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{in: nil, out: &out, interactive: false}

	assert.False(t, term.Confirm("Install missing packages?"))
	assert.Contains(t, out.String(), "--yes")
}

func TestTerminalConfirmGivesUpOnCancel(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	var out bytes.Buffer
	term := NewReader(in, &out).WithContext(ctx)

	done := make(chan bool, 1)
	go func() { done <- term.Confirm("Remove user node_exporter?") }()

	select {
	case got := <-done:
		assert.False(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("Confirm still waiting for input after cancel")
	}

	// later questions do not wait either
	assert.False(t, term.Confirm("Remove group node_exporter?"))
}

func TestFixedConfirmers(t *testing.T) {
	assert.True(t, AssumeYes{}.Confirm("anything"))
	assert.False(t, Deny{}.Confirm("anything"))

	var asked []string
	f := Func(func(q string) bool { asked = append(asked, q); return true })
	assert.True(t, f.Confirm("q1"))
	assert.Equal(t, []string{"q1"}, asked)
}
