package system

import (
	"os"
	"sync"
)

// WorkDir is a scratch directory that lives for one run.
type WorkDir struct {
	Path string
	once sync.Once
}

func NewWorkDir() (*WorkDir, error) {
	p, err := os.MkdirTemp("", "nxsetup-")
	if err != nil {
		return nil, err
	}
	return &WorkDir{Path: p}, nil
}

// Cleanup removes the directory. Safe to call more than once.
func (w *WorkDir) Cleanup() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		_ = os.RemoveAll(w.Path)
	})
}
