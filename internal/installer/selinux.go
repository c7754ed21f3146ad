package installer

import (
	"context"
	"os"
	"strings"

	"nxsetup/internal/executor"
)

func selinuxEnforcing() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// restoreContext relabels path so systemd may execute it.
func restoreContext(ctx context.Context, exec executor.Executor, path string) error {
	_, err := exec.Run(ctx, "restorecon", "-v", path)
	return err
}
