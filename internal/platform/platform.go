// Package platform maps the host operating system and CPU architecture to
// the tag used to pick a node_exporter release asset.
package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Tag identifies an OS/architecture pair in release asset names.
type Tag string

const LinuxAMD64 Tag = "linux-amd64"

var (
	ErrUnsupportedOS   = errors.New("unsupported operating system")
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// Detect returns the tag for goos/arch. Only Linux on 64-bit x86 is
// supported; arch may be given in Go (amd64) or kernel (x86_64) spelling.
func Detect(goos, arch string) (Tag, error) {
	if strings.ToLower(strings.TrimSpace(goos)) != "linux" {
		return "", fmt.Errorf("%w: %q (only linux is supported)", ErrUnsupportedOS, goos)
	}
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64":
		return LinuxAMD64, nil
	default:
		return "", fmt.Errorf("%w: %q (only amd64/x86_64 is supported)", ErrUnsupportedArch, arch)
	}
}

// HostInfo is what the detector needs to know about the machine.
type HostInfo struct {
	OS   string
	Arch string
}

// Host asks the kernel for the running OS and machine architecture, falling
// back to the values this binary was built for.
func Host(ctx context.Context) HostInfo {
	info := HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}

	hi, err := host.InfoWithContext(ctx)
	if err != nil || hi == nil {
		return info
	}
	if hi.OS != "" {
		info.OS = hi.OS
	}
	if hi.KernelArch != "" {
		info.Arch = hi.KernelArch
	}
	return info
}
