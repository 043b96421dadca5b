package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/katattakd/katsite/cmd/katsite/commands"
	kserrors "github.com/katattakd/katsite/internal/errors"
	"github.com/katattakd/katsite/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("katsite"),
		kong.Description("Build a static site from markdown, with plugins hooked into every stage."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := parser.Run(&commands.Global{Logger: slog.Default(), Context: ctx}, cli)
	stop()

	kserrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
