package commands

import (
	"fmt"
	"os"

	"nxsetup/internal/models"
)

// Fatal prints err for the operator and exits. Callers must have run their
// deferred cleanups already.
func Fatal(err error) {
	msg, code := models.FormatForUser(err)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}
