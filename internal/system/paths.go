package system

import "os"

// ConfigFile is read when --config is not given. It may be absent.
const ConfigFile = "/etc/nxsetup/config.yaml"

// Exists reports whether path exists. Errors other than not-exist count as
// existing.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}
