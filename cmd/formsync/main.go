package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goliatone/go-formsync"
	"github.com/goliatone/go-formsync/internal/config"
	"github.com/goliatone/go-formsync/internal/logger"
	"github.com/goliatone/go-formsync/pkg/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "lint":
		return runLint(rest, stdout, stderr)
	case "fill":
		return runFill(ctx, rest, stdout, stderr)
	case "watch":
		return runWatch(ctx, rest, stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage: %s <command> [flags] [args]\n\n", name)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  lint <files...>   check form documents for structural problems")
	fmt.Fprintln(w, "  fill <slug>       answer a published form from the terminal")
	fmt.Fprintln(w, "  watch <form-id>   follow a form's live analytics")
}

// connect loads configuration, installs the logger and builds the API client.
func connect() (config.Config, *api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Setup(cfg)

	client, err := formsync.NewClient(cfg.API.BaseURL,
		api.WithAPIKey(cfg.API.APIKey),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger.Component(log, "api")),
	)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build api client: %w", err)
	}
	return cfg, client, nil
}

func newFlagSet(name string, stderr io.Writer, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s %s\n", filepath.Base(os.Args[0]), usageLine)
		fs.PrintDefaults()
	}
	return fs
}
