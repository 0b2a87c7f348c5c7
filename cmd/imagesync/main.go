// Command imagesync runs one image pass over the listings collection and exits.
//
//	imagesync [flags] assign|repair|audit
//
// The run report is written to stdout as JSON. Exit status is 0 on success,
// 1 on a fatal error, 2 on bad usage and 3 when some listing writes failed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/config"
	"github.com/stanleyluong/stanslist/internal/app"
	"github.com/stanleyluong/stanslist/internal/logger"
	"github.com/stanleyluong/stanslist/internal/usecase"
)

const (
	exitOK           = 0
	exitError        = 1
	exitUsage        = 2
	exitWriteFailure = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("imagesync", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	dryRun := fs.Bool("dry-run", false, "compute decisions without writing to the store")
	probe := fs.Bool("probe", false, "audit: probe every listing image for reachability")
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: imagesync [flags] assign|repair|audit")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	command := fs.Arg(0)
	switch command {
	case "assign", "repair", "audit":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	zl, err := logger.NewLogger(cfg.Server.Environment, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return exitError
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Error("Failed to initialize", zap.Error(err))
		return exitError
	}
	defer a.Close()

	opts := usecase.RunOptions{DryRun: *dryRun}
	var (
		report any
		failed int
	)

	switch command {
	case "assign":
		summary, err := a.Images.AssignImages(ctx, opts)
		if err != nil {
			zl.Error("Assignment failed", zap.Error(err))
			return exitError
		}
		report, failed = summary, summary.Failed
	case "repair":
		rr, err := a.Images.RepairImages(ctx, opts)
		if err != nil {
			zl.Error("Repair failed", zap.Error(err))
			return exitError
		}
		report, failed = rr, rr.Failed
	case "audit":
		ar, err := a.Images.Audit(ctx, *probe)
		if err != nil {
			zl.Error("Audit failed", zap.Error(err))
			return exitError
		}
		report = ar
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		zl.Error("Failed to write report", zap.Error(err))
		return exitError
	}

	if failed > 0 {
		return exitWriteFailure
	}
	return exitOK
}
