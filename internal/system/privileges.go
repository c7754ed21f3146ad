package system

import "os"

// RootChecker reports whether the process may modify the system.
type RootChecker interface {
	IsRoot() bool
}

type EUIDChecker struct{}

func (EUIDChecker) IsRoot() bool {
	return os.Geteuid() == 0
}

// StaticRoot answers a fixed value.
type StaticRoot bool

func (s StaticRoot) IsRoot() bool {
	return bool(s)
}
