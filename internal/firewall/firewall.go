// Package firewall opens and closes the exporter port in firewalld or ufw,
// whichever is active.
package firewall

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"nxsetup/internal/executor"
)

type Kind string

const (
	None      Kind = "none"
	Firewalld Kind = "firewalld"
	UFW       Kind = "ufw"
)

type Configurator struct {
	exec executor.Executor
	log  *logrus.Entry
}

func New(exec executor.Executor, log *logrus.Entry) *Configurator {
	return &Configurator{exec: exec, log: log}
}

// Detect reports the active firewall manager. firewalld wins when both are
// running.
func (c *Configurator) Detect(ctx context.Context) Kind {
	if _, err := c.exec.Run(ctx, "systemctl", "is-active", "--quiet", "firewalld"); err == nil {
		return Firewalld
	}
	if _, err := c.exec.LookPath("ufw"); err == nil {
		res, err := c.exec.Run(ctx, "ufw", "status")
		if err == nil && strings.Contains(res.Stdout, "Status: active") {
			return UFW
		}
	}
	return None
}

// Open allows inbound TCP on port. No active firewall is not an error.
func (c *Configurator) Open(ctx context.Context, port int) error {
	rule := fmt.Sprintf("%d/tcp", port)
	switch kind := c.Detect(ctx); kind {
	case Firewalld:
		if _, err := c.exec.Run(ctx, "firewall-cmd", "--permanent", "--add-port="+rule); err != nil {
			return fmt.Errorf("firewalld: add port %s: %w", rule, err)
		}
		if _, err := c.exec.Run(ctx, "firewall-cmd", "--reload"); err != nil {
			return fmt.Errorf("firewalld: reload: %w", err)
		}
	case UFW:
		if _, err := c.exec.Run(ctx, "ufw", "allow", rule); err != nil {
			return fmt.Errorf("ufw: allow %s: %w", rule, err)
		}
	default:
		c.log.WithField("port", port).Info("no active firewall detected, skipping firewall configuration")
		return nil
	}
	c.log.WithField("rule", rule).Info("firewall port opened")
	return nil
}

// Close removes the rule Open added. A missing rule is reported as an error
// for the caller to log; callers treat it as non-fatal.
func (c *Configurator) Close(ctx context.Context, port int) error {
	rule := fmt.Sprintf("%d/tcp", port)
	switch kind := c.Detect(ctx); kind {
	case Firewalld:
		_, removeErr := c.exec.Run(ctx, "firewall-cmd", "--permanent", "--remove-port="+rule)
		if _, err := c.exec.Run(ctx, "firewall-cmd", "--reload"); err != nil && removeErr == nil {
			return fmt.Errorf("firewalld: reload: %w", err)
		}
		if removeErr != nil {
			return fmt.Errorf("firewalld: remove port %s: %w", rule, removeErr)
		}
	case UFW:
		if _, err := c.exec.Run(ctx, "ufw", "delete", "allow", rule); err != nil {
			return fmt.Errorf("ufw: delete allow %s: %w", rule, err)
		}
	default:
		c.log.WithField("port", port).Info("no active firewall detected, no rule to remove")
		return nil
	}
	c.log.WithField("rule", rule).Info("firewall port closed")
	return nil
}
