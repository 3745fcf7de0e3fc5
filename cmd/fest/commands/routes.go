package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/fest/internal/routes"
)

var stdout io.Writer = os.Stdout

// RoutesCmd implements the 'routes' command.
type RoutesCmd struct {
	PagesDir string `short:"p" name:"pages-dir" help:"Pages directory (overrides pages_dir)"`
}

func (r *RoutesCmd) Run(_ *Global, root *CLI) error {
	dir := r.PagesDir
	if dir == "" {
		cfg, err := root.LoadConfig()
		if err != nil {
			return err
		}
		dir = cfg.PagesDir
	}
	table, err := routes.Build(dir)
	if err != nil {
		return err
	}
	printTable(table)
	return nil
}

func printTable(t *routes.Table) {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.New(color.Bold).Sprint("PATH\tKIND\tFILE"))
	for _, rt := range t.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", color.CyanString(rt.Path), rt.Kind, rt.File)
	}
	_ = tw.Flush()
	for _, c := range t.Conflicts() {
		fmt.Fprintf(stdout, "%s %s: kept %s, skipped %s\n", color.YellowString("conflict"), c.Path, c.Kept, c.Skipped)
	}
	fmt.Fprintf(stdout, "%d routes\n", t.Len())
}
