package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/fest/cmd/fest/commands"
	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("fest"),
		kong.Description("Serve and export a directory of HTML and Markdown pages."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
