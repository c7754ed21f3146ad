// Package textfile writes installer metadata for the node_exporter textfile
// collector.
package textfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const FileName = "nxsetup.prom"

type Info struct {
	Release     string
	User        string
	Group       string
	Port        int
	InstalledAt time.Time
}

func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Write replaces dir/nxsetup.prom. The collector directory is created if
// missing.
func Write(dir string, info Info) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create textfile dir: %w", err)
	}

	reg := prometheus.NewRegistry()

	infoGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nxsetup_install_info",
		Help: "Node exporter installation managed by nxsetup.",
	}, []string{"release", "user", "group", "port"})
	ts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nxsetup_install_timestamp_seconds",
		Help: "Unix time of the last nxsetup install.",
	})
	reg.MustRegister(infoGauge, ts)

	at := info.InstalledAt
	if at.IsZero() {
		at = time.Now()
	}
	infoGauge.WithLabelValues(info.Release, info.User, info.Group, strconv.Itoa(info.Port)).Set(1)
	ts.Set(float64(at.Unix()))

	if err := prometheus.WriteToTextfile(Path(dir), reg); err != nil {
		return fmt.Errorf("write textfile metrics: %w", err)
	}
	return nil
}

// Remove deletes the metrics file. A missing file is not an error.
func Remove(dir string) error {
	err := os.Remove(Path(dir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove textfile metrics: %w", err)
	}
	return nil
}
