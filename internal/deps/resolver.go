// Package deps makes sure the external tools nxsetup shells out to are
// installed, offering to install missing ones with the host package manager.
package deps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"nxsetup/internal/executor"
	"nxsetup/internal/models"
	"nxsetup/internal/prompt"
)

// PackageManager describes how to install packages with one tool.
type PackageManager struct {
	Name    string   // key into the packages table (apt, dnf, yum)
	Binary  string   // executable looked up on PATH
	Refresh []string // optional index refresh before installing
	Install []string // install subcommand, package names are appended
	Env     []string // extra environment for refresh and install
}

// Managers in detection priority order.
var Managers = []PackageManager{
	{Name: "apt", Binary: "apt-get", Refresh: []string{"update"}, Install: []string{"install", "-y"},
		Env: []string{"DEBIAN_FRONTEND=noninteractive"}},
	{Name: "dnf", Binary: "dnf", Install: []string{"install", "-y"}},
	{Name: "yum", Binary: "yum", Install: []string{"install", "-y"}},
}

type Resolver struct {
	exec     executor.Executor
	confirm  prompt.Confirmer
	tools    []string
	packages map[string]map[string]string
	log      *logrus.Entry
}

func NewResolver(exec executor.Executor, confirm prompt.Confirmer, tools []string, packages map[string]map[string]string, log *logrus.Entry) *Resolver {
	return &Resolver{
		exec:     exec,
		confirm:  confirm,
		tools:    tools,
		packages: packages,
		log:      log,
	}
}

// Missing lists the required tools not found on PATH.
func (r *Resolver) Missing() []string {
	var missing []string
	for _, tool := range r.tools {
		if _, err := r.exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// DetectManager returns the first package manager found on PATH.
func (r *Resolver) DetectManager() (PackageManager, bool) {
	for _, pm := range Managers {
		if _, err := r.exec.LookPath(pm.Binary); err == nil {
			return pm, true
		}
	}
	return PackageManager{}, false
}

// Resolve returns nil when every tool is available, installing missing ones
// after the operator agrees. Declining is fatal.
func (r *Resolver) Resolve(ctx context.Context) error {
	missing := r.Missing()
	if len(missing) == 0 {
		r.log.Debug("all required tools present")
		return nil
	}
	r.log.WithField("missing", missing).Warn("required tools are missing")

	pm, ok := r.DetectManager()
	if !ok {
		return models.Errorf(models.CodeDependencyMissing, "missing required tools: %s", strings.Join(missing, ", ")).
			WithHint("no supported package manager (apt-get, dnf, yum) found; install them manually and re-run")
	}

	pkgs := r.packagesFor(pm, missing)
	question := fmt.Sprintf("Missing tools: %s. Install %s with %s?",
		strings.Join(missing, ", "), strings.Join(pkgs, " "), pm.Binary)
	if !r.confirm.Confirm(question) {
		if err := ctx.Err(); err != nil {
			return models.Wrap(models.CodeStepFailed, "interrupted while asking to install dependencies", err)
		}
		return models.Errorf(models.CodeConsentDeclined, "required tools are missing: %s", strings.Join(missing, ", ")).
			WithHint(fmt.Sprintf("install them with: %s %s %s", pm.Binary, strings.Join(pm.Install, " "), strings.Join(pkgs, " ")))
	}

	if len(pm.Refresh) > 0 {
		if _, err := r.exec.RunEnv(ctx, pm.Env, pm.Binary, pm.Refresh...); err != nil {
			return models.Wrap(models.CodeDependencyInstall, "refresh package index", err)
		}
	}
	args := append(append([]string{}, pm.Install...), pkgs...)
	if _, err := r.exec.RunEnv(ctx, pm.Env, pm.Binary, args...); err != nil {
		return models.Wrap(models.CodeDependencyInstall, "install "+strings.Join(pkgs, " "), err)
	}

	if still := r.Missing(); len(still) > 0 {
		return models.Errorf(models.CodeDependencyInstall, "tools still missing after install: %s", strings.Join(still, ", "))
	}
	r.log.WithFields(logrus.Fields{"manager": pm.Name, "packages": pkgs}).Info("installed missing packages")
	return nil
}

// packagesFor maps tools to package names; unmapped tools are installed
// under their own name.
func (r *Resolver) packagesFor(pm PackageManager, tools []string) []string {
	table := r.packages[pm.Name]
	seen := map[string]bool{}
	var pkgs []string
	for _, tool := range tools {
		pkg := tool
		if p, ok := table[tool]; ok && p != "" {
			pkg = p
		}
		if !seen[pkg] {
			seen[pkg] = true
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Strings(pkgs)
	return pkgs
}
