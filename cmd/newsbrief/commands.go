package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/deusflow/newsbrief/internal/app"
	"github.com/deusflow/newsbrief/internal/config"
	"github.com/deusflow/newsbrief/internal/gemini"
	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/rss"
)

func rootApp() *cli.App {
	return &cli.App{
		Name:  "newsbrief",
		Usage: "Collect feeds and pick the stories that matter",
		Description: `newsbrief fetches the configured RSS/Atom feeds, keeps entries that match
		the keyword filter and are recent enough, merges near-duplicate headlines
		reported by several outlets and ranks the result into a short, domain
		diversified highlight list with the trending category of the period.

		Settings can be overridden via environment variables, e.g.:

		--config => NEWSBRIEF_CONFIG=configs/config.yaml
		GEMINI_API_KEY, MAX_RESULTS, MAX_PER_DOMAIN, FETCH_WORKERS, DEBUG=true
		`,
		Commands: []*cli.Command{
			runCmd(),
			sourcesCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "configuration file (.yaml, .yml or .toml)",
		EnvVars: []string{"NEWSBRIEF_CONFIG"},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	logger.Init(c.Bool("debug"))
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if cfg.Debug {
		logger.Init(true)
	}
	return cfg, nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch all sources and print the highlights",
		Description: `Runs the pipeline once. The process exits non-zero only when the
		configuration is invalid, no source is configured or every source failed;
		a run where some sources failed still succeeds with fewer entries.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the report as JSON",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "overall deadline for fetching (overrides run_timeout)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("timeout") {
				cfg.Settings.RunTimeout = c.Duration("timeout")
			}

			if cfg.HTTPMonitoring {
				go startMonitoringServer(cfg.MonitoringPort)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := app.Deps{}
			if cfg.Gemini.Enabled() {
				client, err := gemini.NewClient(ctx, gemini.Options{
					APIKey:      cfg.Gemini.APIKey,
					Model:       cfg.Gemini.Model,
					MaxRequests: cfg.Gemini.MaxRequests,
					CacheTTL:    cfg.Gemini.CacheTTL,
				})
				if err != nil {
					logger.Warn("gemini disabled, using feed summaries", "error", err)
				} else {
					defer client.Close()
					deps.Summarizer = client
				}
			}

			report, err := app.Run(ctx, cfg, deps)
			if report != nil {
				if werr := writeReport(c.App.Writer, report, c.Bool("json")); werr != nil {
					return werr
				}
			}
			switch {
			case errors.Is(err, app.ErrNoSources):
				return cli.Exit(fmt.Sprintf("%v (config: %q)", err, cfg.Path), 2)
			case err != nil:
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

func writeReport(w io.Writer, report *app.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err := fmt.Fprint(w, app.FormatReport(report))
	return err
}

func sourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List the configured sources",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "check",
				Usage: "fetch every source once and report its status",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			registry := rss.NewRegistry(app.Sources(cfg))
			if registry.Len() == 0 {
				return cli.Exit(app.ErrNoSources.Error(), 2)
			}
			if !c.Bool("check") {
				return listSources(c.App.Writer, registry.All())
			}
			return checkSources(c.Context, c.App.Writer, cfg, registry.All())
		},
	}
}

func listSources(w io.Writer, sources []rss.Source) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tKIND\tURL")
	for _, s := range sources {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Category, s.Kind, s.URL)
	}
	return tw.Flush()
}

func checkSources(ctx context.Context, w io.Writer, cfg *config.Config, sources []rss.Source) error {
	if cfg.Settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Settings.RunTimeout)
		defer cancel()
	}

	results, _ := app.NewFetcher(cfg.Settings, nil).FetchAll(ctx, sources, cfg.Settings.Workers)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tENTRIES\tATTEMPTS\tDETAIL")
	for _, r := range results {
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		} else if len(r.Warnings) > 0 {
			detail = r.Warnings[0]
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Source.Name, r.Status, len(r.Entries), r.Attempts, detail)
	}
	return tw.Flush()
}
