package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/new20/newsai/internal/api"
	"github.com/new20/newsai/internal/app"
	"github.com/new20/newsai/internal/platform/config"
	db "github.com/new20/newsai/internal/storage"
)

func rootApp() *cli.App {
	return &cli.App{
		Name:  "newsai",
		Usage: "AI news ingestion service",
		Description: `Pulls AI news from RSS, Atom and API sources, filters and scores it,
rewrites it through an LLM gateway, resolves images and stores the result in Postgres.

Configuration is read from the environment and an optional .env file.`,
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			backfillCmd(),
			diagnoseCmd(),
			listSourcesCmd(),
			selfTestCmd(),
			migrateCmd(),
		},
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}
}

// env is the configuration and logger shared by every command.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &env{cfg: cfg, logger: app.NewLogger(cfg.AppEnv, cfg.LogLevel)}, nil
}

// withDatabase connects, migrates and hands an App to fn.
func withDatabase(ctx context.Context, e *env, fn func(*app.App) error) error {
	if err := e.cfg.RequireDatabase(); err != nil {
		return err
	}

	database, err := db.New(ctx, e.cfg.PostgresDSN, app.NewPoolOptions(e.cfg), &e.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return fn(app.New(e.cfg, database, &e.logger))
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and run scheduled ingestion",
		Action: func(c *cli.Context) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			if err := e.cfg.RequireServer(); err != nil {
				return err
			}

			err = withDatabase(c.Context, e, func(a *app.App) error {
				return a.RunServe(c.Context)
			})
			if errors.Is(err, context.Canceled) {
				e.logger.Info().Msg("server stopped")
				return nil
			}

			return err
		},
	}
}

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Run one ingestion pass and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "self-test",
				Usage: "limit the run to a couple of sources and a handful of articles",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			if err := e.cfg.RequireServer(); err != nil {
				return err
			}

			return withDatabase(c.Context, e, func(a *app.App) error {
				res, err := a.RunFetch(c.Context, c.Bool("self-test"))
				if err != nil {
					return err
				}

				return printJSON(c.App.Writer, res.Metrics)
			})
		},
	}
}

func backfillCmd() *cli.Command {
	return &cli.Command{
		Name:  "backfill-images",
		Usage: "Replace missing or generic article images with relevant stock photos",
		Action: func(c *cli.Context) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			return withDatabase(c.Context, e, func(a *app.App) error {
				report, err := a.RunBackfill(c.Context)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(c.App.Writer, "Backfill complete. Updated %d of %d articles.\n", report.Updated, report.Processed)

				return err
			})
		},
	}
}

func diagnoseCmd() *cli.Command {
	return &cli.Command{
		Name:  "diagnose-images",
		Usage: "Report broken and generic images among recent articles",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "probe image URLs with HEAD requests",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			return withDatabase(c.Context, e, func(a *app.App) error {
				return a.RunDiagnose(c.Context, c.Bool("remote"), c.App.Writer)
			})
		},
	}
}

func listSourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "list-sources",
		Usage: "Print the classified source registry",
		Action: func(c *cli.Context) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			return app.New(e.cfg, nil, &e.logger).ListSources(c.App.Writer)
		},
	}
}

func selfTestCmd() *cli.Command {
	return &cli.Command{
		Name:  "self-test",
		Usage: "Authenticate against a running server and trigger a capped ingestion run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "server base URL",
				EnvVars: []string{"API_BASE_URL"},
				Value:   "http://localhost:3001",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "admin API key",
				EnvVars: []string{"ADMIN_API_KEY"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.String("api-key") == "" {
				return errors.New("ADMIN_API_KEY is required")
			}

			return runSelfTest(c.Context, api.NewClient(c.String("base-url"), c.String("api-key"), nil), c.App.Writer)
		},
	}
}

func runSelfTest(ctx context.Context, client *api.Client, w io.Writer) error {
	if err := client.Authenticate(ctx); err != nil {
		return err
	}

	fmt.Fprintln(w, "Authenticated.")

	res, err := client.FetchNews(ctx, true)
	if perr := printJSON(w, res.Debug); perr != nil {
		return perr
	}

	if err != nil {
		return fmt.Errorf("%w (%s)", err, res.Error)
	}

	fmt.Fprintf(w, "Self-test OK: %s\n", res.Message)

	return nil
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Action: func(c *cli.Context) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			return withDatabase(c.Context, e, func(*app.App) error {
				e.logger.Info().Msg("migrations applied")
				return nil
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}
