package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	DB    string `name:"db" help:"SQLite database (overrides export.history_db)"`
	Limit int    `short:"n" name:"limit" default:"20" help:"Number of runs to list"`
	RunID string `name:"run" help:"Show the pages of one run"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	db := h.DB
	if db == "" {
		cfg, err := root.LoadConfig()
		if err != nil {
			return err
		}
		db = cfg.Export.HistoryDB
	}
	if db == "" {
		return ferrors.ValidationError("no history database configured").
			WithContext("hint", "set export.history_db or pass --db").
			Build()
	}

	store, err := history.NewSQLiteStore(db)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.RunID != "" {
		run, err := store.GetRun(ctx, h.RunID)
		if errors.Is(err, history.ErrRunNotFound) {
			return ferrors.NewError(ferrors.CategoryNotFound, "export run not found").WithContext("run", h.RunID).Build()
		}
		if err != nil {
			return err
		}
		printRun(run)
		return nil
	}

	runs, err := store.ListRuns(ctx, h.Limit)
	if err != nil {
		return err
	}
	printRuns(runs)
	return nil
}

func status(ok bool) string {
	if ok {
		return color.GreenString("ok")
	}
	return color.RedString("failed")
}

func printRuns(runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No export runs recorded")
		return
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tSUCCEEDED\tFAILED\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), status(r.OK()), r.Succeeded, r.Failed, r.OutputDir)
	}
	_ = tw.Flush()
}

func printRun(r *history.Run) {
	fmt.Fprintf(stdout, "Run %s (%s) %s -> %s\n", r.ID, status(r.OK()), r.PagesDir, r.OutputDir)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tDURATION\tRESULT")
	for _, p := range r.Pages {
		result := p.Output
		if p.Error != "" {
			result = color.RedString(p.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Duration.Round(time.Microsecond), result)
	}
	_ = tw.Flush()
}
