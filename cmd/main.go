package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.ErrorContext(ctx, "Failed to load .env file",
			"error", err)

		os.Exit(1)
	}

	app := &cli.Command{
		Name:  "pdfsum",
		Usage: "Summarize PDF documents with a language model",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the web frontend, the Telegram bot and the scratch janitor",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "HTTP listen address (overrides HTTP_ADDR)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServe(ctx, cmd.String("addr"))
				},
			},
			{
				Name:      "summarize",
				Usage:     "Summarize one PDF file and print the result",
				ArgsUsage: "<file.pdf>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the result as JSON",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSummarize(ctx, cmd.Args().First(), cmd.Bool("json"), os.Stdout)
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.ErrorContext(ctx, "Command failed",
			"error", err)

		os.Exit(1)
	}
}
