package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"icsbuild/internal/build"
	"icsbuild/internal/config"
	"icsbuild/internal/ics"
	appLog "icsbuild/internal/log"
	"icsbuild/internal/runner"
	"icsbuild/internal/source"
	"icsbuild/internal/storage"
	"icsbuild/internal/userconfig"
	"icsbuild/internal/watch"
)

const version = "0.1.0"

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "icsbuild",
		Usage:   "Build one calendar file per recipient from shared event groups.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "icsbuild.yaml",
				Usage:   "Path to config file (created with defaults if missing)",
				EnvVars: []string{"ICSBUILD_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config if set)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			buildCommand(),
			inspectCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("icsbuild failed", err)
		os.Exit(1)
	}
}

type pipeline struct {
	conf    *config.Config
	configs *userconfig.Dir
	builder *build.Builder
}

// setup loads the configuration and wires the build pipeline.
func setup(c *cli.Context) (*pipeline, error) {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	levelName := conf.LogLevel
	if c.IsSet("log-level") {
		levelName = c.String("log-level")
	}
	level, err := appLog.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	appLog.SetLevel(level)

	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewDir(conf.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output dir: %w", err)
	}

	appLog.Info("effective config",
		"events_dir", conf.EventsDir,
		"userconfig_dir", conf.UserconfigDir,
		"output_dir", conf.OutputDir,
		"timezone", conf.Timezone,
		"poll_seconds", conf.PollSeconds,
		"grace_seconds", conf.GraceSeconds,
		"rebuild_cron", conf.RebuildCron,
	)

	events := source.NewDir(conf.EventsDir, conf.Horizon(), loc)
	return &pipeline{
		conf:    conf,
		configs: userconfig.NewDir(conf.UserconfigDir),
		builder: build.New(store, events, conf.Renderer(), loc),
	}, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Build all calendars, then rebuild whenever inputs change.",
		Action: func(c *cli.Context) error {
			appLog.Info("icsbuild starting", "version", version)

			p, err := setup(c)
			if err != nil {
				return err
			}

			eventWatcher, err := watch.New(p.conf.EventsDir, p.conf.Debounce())
			if err != nil {
				return err
			}
			defer eventWatcher.Close()

			userWatcher, err := watch.New(p.conf.UserconfigDir, p.conf.Debounce())
			if err != nil {
				return err
			}
			defer userWatcher.Close()

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				select {
				case sig := <-sigCh:
					appLog.Info("signal received, shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			r := runner.New(p.builder, p.configs, eventWatcher, userWatcher, runner.Options{
				Poll:        p.conf.Poll(),
				Grace:       p.conf.Grace(),
				RebuildCron: p.conf.RebuildCron,
			})
			if err := r.Run(ctx); err != nil {
				return err
			}

			appLog.Info("icsbuild exiting")
			return nil
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build all calendars once and exit.",
		Action: func(c *cli.Context) error {
			p, err := setup(c)
			if err != nil {
				return err
			}
			files, err := p.configs.LoadAll()
			if err != nil {
				return err
			}
			statuses, err := p.builder.All(files)
			if summary := build.Summary(statuses, build.All); summary != "" {
				fmt.Fprintln(c.App.Writer, summary)
			}
			return err
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the events of a published calendar.",
		ArgsUsage: "<calendar file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("inspect expects exactly one calendar file", 2)
			}
			conf, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			path := c.Args().First()
			if _, err := os.Stat(path); err != nil {
				// Bare artifact names are looked up in the output directory.
				path = filepath.Join(conf.OutputDir, filepath.Base(path))
			}
			body, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read calendar: %w", err)
			}

			events, err := ics.ParseArtifact(body)
			if err != nil {
				return fmt.Errorf("failed to parse calendar %s: %w", path, err)
			}
			for _, ev := range events {
				fmt.Fprintf(c.App.Writer, "%s - %s  %-9s  %s", ev.Start.Format("2006-01-02 15:04"), ev.End.Format("15:04"), ev.Status, ev.Summary)
				if ev.Location != "" {
					fmt.Fprintf(c.App.Writer, " @ %s", ev.Location)
				}
				if ev.Alarm != "" {
					fmt.Fprintf(c.App.Writer, " (alarm %s)", ev.Alarm)
				}
				fmt.Fprintln(c.App.Writer)
			}
			fmt.Fprintf(c.App.Writer, "%d events\n", len(events))
			return nil
		},
	}
}
