package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "docdigest",
		Usage: "Split documents on keywords and summarize them segment by segment",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Summarize one batch of documents",
				ArgsUsage: "[dir]",
				Flags:     batchFlags(),
				Action:    runAction,
			},
			{
				Name:      "watch",
				Usage:     "Repeat the batch on a cron schedule until interrupted",
				ArgsUsage: "[dir]",
				Flags: append(batchFlags(), &cli.StringFlag{
					Name:  "spec",
					Usage: "Cron spec overriding WATCH_SPEC",
				}),
				Action: watchAction,
			},
			{
				Name:   "models",
				Usage:  "List available model identifiers",
				Flags:  []cli.Flag{envFlag()},
				Action: modelsAction,
			},
			{
				Name:  "history",
				Usage: "Show recorded runs",
				Flags: []cli.Flag{
					envFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show the documents of this run instead",
					},
				},
				Action: historyAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "Path of an optional .env file",
		Value: ".env",
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		envFlag(),
		&cli.StringFlag{
			Name:  "model",
			Usage: "Model identifier overriding MODEL",
		},
		&cli.StringFlag{
			Name:  "prompt",
			Usage: "Prompt text overriding PROMPT",
		},
		&cli.IntFlag{
			Name:  "max-tokens",
			Usage: "Summary token cap overriding MAX_TOKENS",
		},
		&cli.StringFlag{
			Name:  "keywords",
			Usage: "Comma-separated keyword list overriding KEYWORDS",
		},
		&cli.StringFlag{
			Name:  "links",
			Usage: "Path of a text file whose https links become documents",
		},
		&cli.StringSliceFlag{
			Name:  "feed",
			Usage: "Feed URL whose items become documents (repeatable)",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Directory where summaries of link and feed documents land",
		},
	}
}
