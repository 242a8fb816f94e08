package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "scramblectl",
		Usage:   "Enhance text and files through a running scramble server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "scramble API base `URL`",
				Value:   "http://localhost:8090",
				EnvVars: []string{"SCRAMBLE_URL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent as X-API-Key",
				EnvVars: []string{"SCRAMBLE_API_KEY"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout, including time spent queued",
				Value: 3 * time.Minute,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log engine state transitions",
			},
		},
		Commands: []*cli.Command{
			promptsCommand(),
			providersCommand(),
			healthCommand(),
			enhanceCommand(),
			editCommand(),
			benchCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
