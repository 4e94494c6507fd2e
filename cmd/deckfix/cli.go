package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"deckfix/internal/config"
	"deckfix/internal/errors"
	"deckfix/internal/ops"
	"deckfix/internal/watch"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "deckfix",
		Usage:   "Structural checker and repairer for .pptx decks",
		Version: Version,
		Commands: []*cli.Command{
			infoCmd(cfg),
			checkCmd(db, cfg),
			fixCmd(db, cfg),
			buildCmd(db, cfg),
			newCmd(db, cfg),
			watchCmd(db, cfg),
			historyCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// requireDeckArg extracts the positional deck path argument.
func requireDeckArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", outputError(errors.NewInvalidRequest("deck path argument is required"))
	}
	return c.Args().First(), nil
}

// infoCmd creates the info command.
func infoCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Inspect a deck's parts, slides, and content types",
		ArgsUsage: "<deck.pptx>",
		Action: func(c *cli.Context) error {
			path, err := requireDeckArg(c)
			if err != nil {
				return err
			}
			output, err := ops.Inspect(cfg, ops.InspectInput{Path: path})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// checkCmd creates the check command.
func checkCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate a deck's container structure",
		ArgsUsage: "<deck.pptx>",
		Action: func(c *cli.Context) error {
			path, err := requireDeckArg(c)
			if err != nil {
				return err
			}
			output, err := ops.Check(db, cfg, ops.CheckInput{Path: path})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if !output.Valid {
				return cli.Exit("", 2)
			}
			return nil
		},
	}
}

// fixCmd creates the fix command.
func fixCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "Validate and repair a deck",
		ArgsUsage: "<deck.pptx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Destination path (default: repair in place)"},
			&cli.BoolFlag{Name: "prune-orphans", Usage: "Also remove parts unreachable from the package root"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report repairs without writing anything"},
		},
		Action: func(c *cli.Context) error {
			path, err := requireDeckArg(c)
			if err != nil {
				return err
			}
			output, err := ops.Fix(db, cfg, ops.FixInput{
				Path:         path,
				Output:       c.String("output"),
				PruneOrphans: c.Bool("prune-orphans"),
				DryRun:       c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// buildCmd creates the build command.
func buildCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build a deck from a markdown outline",
		ArgsUsage: "<outline.md>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Destination .pptx path"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Deck title (default: first slide's title)"},
			&cli.StringFlag{Name: "theme", Usage: "YAML theme file"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("markdown path argument is required"))
			}
			output, err := ops.Build(db, cfg, ops.BuildInput{
				MarkdownPath: c.Args().First(),
				Output:       c.String("output"),
				Title:        c.String("title"),
				ThemePath:    c.String("theme"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// newCmd creates the new command.
func newCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a minimal deck with a title slide and numbered slides",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Destination .pptx path"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Deck title"},
			&cli.IntFlag{Name: "slides", Aliases: []string{"n"}, Value: 1, Usage: "Total slide count"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.New(db, cfg, ops.NewInput{
				Output: c.String("output"),
				Title:  c.String("title"),
				Slides: c.Int("slides"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-check decks whenever they change on disk",
		ArgsUsage: "<deck.pptx> [more.pptx ...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "debounce", Value: 500 * time.Millisecond, Usage: "Quiet period before re-checking"},
			&cli.BoolFlag{Name: "fix", Usage: "Repair instead of only checking"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("at least one deck path is required"))
			}
			paths := c.Args().Slice()
			for _, path := range paths {
				if err := ops.ValidateDeckPath(path, ops.PathCheckRead, cfg); err != nil {
					return outputError(err)
				}
			}

			doFix := c.Bool("fix")
			recheck := func(ctx context.Context, changed []string) error {
				for _, path := range changed {
					var result any
					var err error
					if doFix {
						result, err = ops.Fix(db, cfg, ops.FixInput{Path: path})
					} else {
						result, err = ops.Check(db, cfg, ops.CheckInput{Path: path})
					}
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
						continue
					}
					if err := outputJSON(result); err != nil {
						return err
					}
				}
				return nil
			}

			w, err := watch.New(watch.Config{
				Paths:    paths,
				Debounce: c.Duration("debounce"),
				OnChange: recheck,
			})
			if err != nil {
				return outputError(err)
			}

			fmt.Fprintf(os.Stderr, "watching %d file(s), ^C to stop\n", len(paths))
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := w.Run(ctx); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List recorded runs, or show one run by id",
		ArgsUsage: "[run-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Restrict to runs against one deck"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum runs to return"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				output, err := ops.HistoryGet(db, ops.HistoryGetInput{ID: c.Args().First()})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.History(db, cfg, ops.HistoryInput{
				File:  c.String("file"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if deckErr, ok := err.(*errors.DeckError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", deckErr.Code, deckErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
