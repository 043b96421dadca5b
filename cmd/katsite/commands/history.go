package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	kserrors "github.com/katattakd/katsite/internal/errors"
	"github.com/katattakd/katsite/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Journal string        `help:"Override journal.path"`
	Since   time.Duration `default:"168h" help:"How far back to look"`
	Limit   int           `default:"20" help:"Maximum number of runs to show (0 shows all)"`
	RunID   string        `name:"run" help:"Show the events of a single run instead of summaries"`
	JSON    bool          `name:"json" help:"Print JSON instead of a table"`
	Prune   time.Duration `help:"Delete runs that started longer ago than this before listing"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	path := h.Journal
	if path == "" {
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return kserrors.New(kserrors.CategoryUsage, kserrors.SeverityFatal,
			"no build journal configured (set journal.path or pass --journal)")
	}
	if _, err := os.Stat(path); err != nil {
		return kserrors.Wrap(err, kserrors.CategoryNoInput, kserrors.SeverityFatal,
			"build journal not found").WithContext("path", path)
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.Prune > 0 {
		n, err := store.Prune(g.ctx(), time.Now().Add(-h.Prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Pruned %d journal events\n", n)
	}

	if h.RunID != "" {
		return printRunEvents(g.ctx(), os.Stdout, store, h.RunID, h.JSON)
	}
	end := time.Now()
	return printHistory(g.ctx(), os.Stdout, store, end.Add(-h.Since), end, h.Limit, h.JSON)
}

func printHistory(ctx context.Context, w io.Writer, store eventstore.Store, start, end time.Time, limit int, asJSON bool) error {
	runs, err := eventstore.LoadHistory(ctx, store, start, end)
	if err != nil {
		return err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tFILES\tBUILT\tSKIPPED\tWARNINGS\tDURATION")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			r.Files, r.Built, r.Skipped, r.Warnings,
			r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

// journalEvent is the printable form of one journal entry.
type journalEvent struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func printRunEvents(ctx context.Context, w io.Writer, store eventstore.Store, runID string, asJSON bool) error {
	events, err := store.GetByRunID(ctx, runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return kserrors.New(kserrors.CategoryNoInput, kserrors.SeverityFatal,
			"no events recorded for run").WithContext("run_id", runID)
	}

	out := make([]journalEvent, 0, len(events))
	for _, e := range events {
		out = append(out, journalEvent{Time: e.Timestamp(), Type: e.Type(), Payload: e.Payload()})
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, e := range out {
		if _, err := fmt.Fprintf(w, "%s  %-14s %s\n", e.Time.Local().Format(time.DateTime), e.Type, e.Payload); err != nil {
			return err
		}
	}
	return nil
}
