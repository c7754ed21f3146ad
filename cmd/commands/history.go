package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"nxsetup/internal/journal"
	"nxsetup/internal/models"
)

func runHistory(cfg models.Config, limit int, w io.Writer) error {
	if _, err := os.Stat(cfg.JournalPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(w, "no recorded operations")
		return nil
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return models.Wrap(models.CodeStepFailed, "open journal", err).
			WithHint("the journal is readable by root only; re-run with sudo")
	}
	defer j.Close()

	entries, err := j.List(limit)
	if err != nil {
		return models.Wrap(models.CodeStepFailed, "read journal", err)
	}
	printHistory(w, entries)
	return nil
}

func printHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no recorded operations")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tOUTCOME\tUSER\tGROUP\tPORT\tRELEASE\tDETAIL")
	for _, e := range entries {
		release := e.Release
		if release == "" {
			release = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Action, e.Outcome, e.User, e.Group, e.Port, release, e.Detail)
	}
	_ = tw.Flush()
}
