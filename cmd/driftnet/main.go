// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/driftnet"
	"github.com/poiesic/driftnet/config"
	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/ingestion"
	"github.com/poiesic/driftnet/normalize"
	"github.com/poiesic/driftnet/schedule"
	"github.com/urfave/cli/v2"
)

const stopTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "driftnet",
		Usage: "Scrape public channels, resolve their links and store the results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:      "add-source",
				Usage:     "Register one or more channels",
				ArgsUsage: "CHANNEL...",
				Action:    addSourceCommand,
			},
			{
				Name:   "load-sources",
				Usage:  "Register every channel listed in the configuration",
				Action: loadSourcesCommand,
			},
			{
				Name:      "remove-source",
				Usage:     "Unregister a channel",
				ArgsUsage: "CHANNEL",
				Action:    removeSourceCommand,
			},
			{
				Name:   "list-sources",
				Usage:  "List registered channels",
				Action: listSourcesCommand,
			},
			{
				Name:      "run-once",
				Usage:     "Run one ingestion pass and exit",
				ArgsUsage: "[CHANNEL...]",
				Action:    runOnceCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-items",
						Usage: "Maximum items per channel (0 uses the configured value)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Channels scraped at once (0 uses the configured value)",
					},
				},
			},
			{
				Name:   "start",
				Usage:  "Run ingestion and normalization on their schedules until interrupted",
				Action: startCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "now",
						Usage: "Run every job once immediately",
					},
				},
			},
			{
				Name:   "normalize",
				Usage:  "Normalize unprocessed items with the language model",
				Action: normalizeCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-items",
						Usage: "Maximum items to normalize (0 means all)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show item processing counts",
				Action: statsCommand,
			},
			{
				Name:   "show-links",
				Usage:  "Show the most recent items that carry links",
				Action: showLinksCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of items to show",
						Value: 10,
					},
				},
			},
			{
				Name:      "expand-url",
				Usage:     "Fetch a post URL and print the secondary item it would produce",
				ArgsUsage: "URL",
				Action:    expandURLCommand,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*driftnet.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := driftnet.NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func addSourceCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one channel is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	added, err := db.SourceRepository().AddSources(c.Context, c.Args().Slice()...)
	if err != nil {
		return err
	}
	for _, s := range added {
		fmt.Fprintf(c.App.Writer, "added %s\n", s.Name)
	}
	fmt.Fprintf(c.App.Writer, "%d new of %d requested\n", len(added), c.NArg())
	return nil
}

func loadSourcesCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	configured := db.Config().Sources
	if len(configured) == 0 {
		return fmt.Errorf("no sources configured: set sources in the config file or %s", config.EnvSources)
	}
	added, err := db.SourceRepository().AddSources(c.Context, configured...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "loaded %d new of %d configured sources\n", len(added), len(configured))
	return nil
}

func removeSourceCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one channel is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	name := c.Args().First()
	if err := db.SourceRepository().RemoveSource(c.Context, name); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	fmt.Fprintf(c.App.Writer, "removed %s\n", core.NormalizeSourceName(name))
	return nil
}

func listSourcesCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := db.SourceRepository().ListSources(c.Context)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(c.App.Writer, "no sources registered")
		return nil
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDED\tLAST SCRAPED")
	for _, s := range sources {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, formatTime(s.AddedAt), formatTime(s.LastScraped))
	}
	return w.Flush()
}

func runOnceCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orch, err := db.NewOrchestrator()
	if err != nil {
		return err
	}

	// The first signal lets admitted sources finish, the second aborts.
	ctx, cancel := shutdownOnSignal(c.Context, func() {
		slog.Warn("stopping after running sources finish, signal again to abort")
		orch.Stop()
	})
	defer cancel()

	sources := c.Args().Slice()
	if len(sources) == 0 {
		sources = db.Config().Sources
	}
	report, err := orch.Run(ctx, sources, c.Int("max-items"), c.Int("concurrency"))
	if report != nil {
		printReport(c, report)
	}
	return err
}

func startCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.NewScheduler(schedule.WithRunOnStart(c.Bool("now")))
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	for name, next := range s.NextRuns() {
		slog.Info("next run", "job", name, "at", next.Format(time.RFC3339))
	}

	interrupted := make(chan struct{})
	ctx, cancel := shutdownOnSignal(c.Context, func() { close(interrupted) })
	defer cancel()
	select {
	case <-interrupted:
	case <-ctx.Done():
	}

	// A second signal cuts the wait short.
	stopCtx, stopCancel := context.WithTimeout(ctx, stopTimeout)
	defer stopCancel()
	return s.Stop(stopCtx)
}

// shutdownOnSignal calls graceful on the first SIGINT or SIGTERM and cancels
// the returned context on the second.
func shutdownOnSignal(parent context.Context, graceful func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		watchSignals(ctx, sigs, graceful, cancel)
	}()
	return ctx, cancel
}

func watchSignals(ctx context.Context, sigs <-chan os.Signal, graceful func(), cancel context.CancelFunc) {
	select {
	case <-sigs:
	case <-ctx.Done():
		return
	}
	graceful()
	select {
	case <-sigs:
		cancel()
	case <-ctx.Done():
	}
}

func normalizeCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []normalize.Option{normalize.WithProgress(c.App.ErrWriter)}
	if n := c.Int("max-items"); n > 0 {
		opts = append(opts, normalize.WithMaxItems(n))
	}
	proc, err := db.NewNormalizeProcessor(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := proc.Run(ctx)
	fmt.Fprintf(c.App.Writer, "normalized %d, skipped %d, failed %d\n", stats.Normalized, stats.Skipped, stats.Failed)
	return err
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := db.ItemRepository().CountByProcessed(c.Context)
	if err != nil {
		return err
	}
	sources, err := db.SourceRepository().ListSources(c.Context)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "sources:     %d\n", len(sources))
	fmt.Fprintf(c.App.Writer, "items:       %d\n", counts.Total)
	fmt.Fprintf(c.App.Writer, "processed:   %d\n", counts.Processed)
	fmt.Fprintf(c.App.Writer, "unprocessed: %d\n", counts.Unprocessed)
	return nil
}

func showLinksCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	items, err := db.ItemRepository().ListWithLinks(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.App.Writer, "no items with links")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(c.App.Writer, "%s/%s (%s, %s)\n", item.SourceID, item.ItemID, item.Kind, formatTime(item.Timestamp))
		for _, link := range item.Links {
			fmt.Fprintf(c.App.Writer, "  %s\n", link)
		}
	}
	return nil
}

func expandURLCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one URL is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	expander, err := db.NewExpander()
	if err != nil {
		return err
	}
	url := c.Args().First()
	parent := &core.Item{
		SourceID:  "manual",
		ItemID:    url,
		Kind:      core.SourceKindPrimary,
		Timestamp: time.Now().UTC(),
	}
	item, err := expander.Expand(c.Context, url, parent)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "id:        %s\n", item.ItemID)
	fmt.Fprintf(c.App.Writer, "author:    %s\n", item.Author)
	fmt.Fprintf(c.App.Writer, "published: %s\n", formatTime(item.Timestamp))
	fmt.Fprintf(c.App.Writer, "\n%s\n", item.Text)
	return nil
}

func printReport(c *cli.Context, r *ingestion.RunReport) {
	w := c.App.Writer
	fmt.Fprintf(w, "run %s: %d items (%d primary, %d secondary), %d new\n",
		r.RunID, len(r.Items), r.Primary, r.Secondary, r.Created)
	fmt.Fprintf(w, "links: %d unique, %d resolved, %d unchanged\n",
		r.Links.Unique, r.Links.Resolved, r.Links.Fallback)
	for _, s := range r.Sources {
		status := "ok"
		if !s.OK() {
			status = fmt.Sprintf("%s: %v", s.Reason, s.Err)
		}
		fmt.Fprintf(w, "  %-24s fetched %-4d stored %-4d %s\n", s.Source, s.Fetched, s.Stored, status)
	}
	for outcome, n := range r.Skips {
		fmt.Fprintf(w, "  skipped %d (%s)\n", n, outcome)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
