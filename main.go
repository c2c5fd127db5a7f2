package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"picdither/extract"
	"picdither/imgio"
	"picdither/parallel"
	"picdither/posterize"

	"github.com/alecthomas/kong"
)

var cli struct {
	Workers  int        `help:"Number of files processed concurrently. 0 uses all CPUs" default:"0"`
	LogLevel slog.Level `help:"Log level (DEBUG, INFO, WARN, ERROR)" default:"INFO"`

	Posterize posterize.CLICmd `cmd:"" help:"Reduce every image of a folder to a small palette"`
	Extract   extract.CLICmd   `cmd:"" help:"Generate a palette from an image and save it as a RIFF PAL file"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("picdither"),
		kong.Description("Palette generation and nearest-color posterization."),
		kong.UsageOnError(),
		kong.Vars{"formats": strings.Join(imgio.Formats, ",")},
	)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cli.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool := parallel.Start(ctx, cli.Workers)
	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(pool); err != nil {
		slog.Error("command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}
