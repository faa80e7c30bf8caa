package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/sentiscope/internal/classify"
	"github.com/TobiSchelling/sentiscope/internal/config"
	"github.com/TobiSchelling/sentiscope/internal/database"
	"github.com/TobiSchelling/sentiscope/internal/logging"
	"github.com/TobiSchelling/sentiscope/internal/pipeline"
	"github.com/TobiSchelling/sentiscope/internal/runner"
	"github.com/TobiSchelling/sentiscope/internal/server"
	"github.com/TobiSchelling/sentiscope/internal/source"
	"github.com/TobiSchelling/sentiscope/internal/tui"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sentiscope",
	Short:   "Sentiment and emotion classification for text",
	Long:    "sentiscope strips text down to its ranked content words, asks a language model for the writer's sentiment and emotions, and keeps the last run as a reloadable breakpoint.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(slog.LevelInfo, verbose)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		config.LoadEnv()
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logging.Init(cfg.SlogLevel(), verbose)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sentiscope", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/sentiscope/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Put your API key in OPENAI_API_KEY (or a .env file) and edit the file to pick a model.")
		return nil
	},
}

// --- run command ---

var (
	dryRun    bool
	inputFile string
	inputURL  string
)

var runCmd = &cobra.Command{
	Use:   "run [text...]",
	Short: "Classify text from arguments, --file, --url or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		in, err := readInput(ctx, args)
		if err != nil {
			return err
		}

		if dryRun {
			pipe, err := pipeline.FromConfig(cfg, nil, nil)
			if err != nil {
				return err
			}
			result := pipe.DryRun(in)
			printSteps(result)
			fmt.Printf("\nPrompt:\n%s\n", result.Prompt)
			return nil
		}

		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := svc.runner.Run(ctx, in)
		if result != nil {
			printSteps(result)
		}
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the prompt without calling the service or saving")
	runCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read input text from a file")
	runCmd.Flags().StringVarP(&inputURL, "url", "u", "", "Fetch a web article and classify its text")
	runCmd.MarkFlagsMutuallyExclusive("file", "url")
}

// readInput picks the input text from --url, --file, arguments or stdin,
// in that order.
func readInput(ctx context.Context, args []string) (pipeline.Input, error) {
	switch {
	case inputURL != "":
		article, err := source.NewFetcher(0).FetchArticle(ctx, inputURL)
		if err != nil {
			return pipeline.Input{}, err
		}
		return pipeline.Input{Text: article.Text, Source: "url:" + inputURL}, nil
	case inputFile != "":
		text, err := source.FromFile(inputFile)
		if err != nil {
			return pipeline.Input{}, err
		}
		return pipeline.Input{Text: text, Source: "file:" + inputFile}, nil
	case len(args) > 0:
		return pipeline.Input{Text: source.Join(args), Source: "args"}, nil
	}

	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		text, err := source.FromReader(os.Stdin)
		if err != nil {
			return pipeline.Input{}, err
		}
		if strings.TrimSpace(text) != "" {
			return pipeline.Input{Text: text, Source: "stdin"}, nil
		}
	}
	return pipeline.Input{}, errors.New("no input: pass text, --file, --url or pipe text on stdin")
}

// --- load command ---

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Show the saved breakpoint without recomputing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := database.LoadCheckpointFile(cfg.CheckpointPath())
		if errors.Is(err, database.ErrCheckpointNotFound) {
			slog.Info("[Load] Breakpoint data not found", slog.String("path", cfg.CheckpointPath()))
			fmt.Println("Breakpoint data not found.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading breakpoint: %w", err)
		}

		fmt.Printf("Saved: %s (run %s)\n\n", cp.CreatedAt, cp.RunID)
		fmt.Printf("Text:\n%s\n\n", strings.TrimSpace(cp.Text))
		fmt.Printf("Features: %s\n", cp.IntermediateText)
		if cp.SentimentLabel != "" {
			fmt.Printf("Local score: %s (%.3f)\n", cp.SentimentLabel, cp.SentimentScore)
		}
		if cp.Classification != nil {
			fmt.Printf("\nClassification:\n%s\n", *cp.Classification)
		}
		return nil
	},
}

// --- status and history commands ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show breakpoint and run history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Config data dir: %s\n", cfg.GetDataDir())
		fmt.Printf("Provider: %s (%s)\n", cfg.Classifier.Provider, cfg.Classifier.Model)
		fmt.Printf("Feature order: %s\n", cfg.Features.Order)
		if cfg.Cache.ValkeyAddr != "" {
			fmt.Printf("Cache: valkey at %s (ttl %s)\n", cfg.Cache.ValkeyAddr, cfg.Cache.TTL)
		}

		if !database.Exists(cfg.CheckpointPath()) {
			fmt.Println("\nNo runs yet.")
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Classified: %d\n", stats.ClassifiedRuns)
		fmt.Printf("  Positive / negative (local): %d / %d\n", stats.PositiveRuns, stats.NegativeRuns)
		if stats.LastRunAt != "" {
			fmt.Printf("  Last run: %s\n", stats.LastRunAt)
		}
		fmt.Printf("\nBreakpoint saved: %v\n", stats.HasCheckpoint)
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !database.Exists(cfg.CheckpointPath()) {
			fmt.Println("No runs yet.")
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRecentRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs yet.")
			return nil
		}

		for _, r := range runs {
			classification := "(none)"
			if r.Classification != nil {
				classification = oneLine(*r.Classification, 60)
			}
			fmt.Printf("%s  %-8s  %s\n", r.CreatedAt, r.SentimentLabel, oneLine(r.Text, 50))
			fmt.Printf("    -> %s\n", classification)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", database.DefaultHistoryLimit, "Number of runs to show")
}

// --- feed command ---

var (
	feedLimit  int
	feedDryRun bool
)

var feedCmd = &cobra.Command{
	Use:   "feed <url>",
	Short: "Classify the newest items of an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		entries, err := source.ReadFeed(ctx, args[0], feedLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Feed has no items.")
			return nil
		}

		if feedDryRun {
			pipe, err := pipeline.FromConfig(cfg, nil, nil)
			if err != nil {
				return err
			}
			for _, e := range entries {
				r := pipe.DryRun(pipeline.Input{Text: e.Text(), Source: "feed:" + e.URL})
				fmt.Printf("\n%s\n  %s\n", e.Title, r.FeatureText)
			}
			return nil
		}

		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		for i, e := range entries {
			fmt.Printf("\n[%d/%d] %s\n", i+1, len(entries), e.Title)
			r, err := svc.runner.Run(ctx, pipeline.Input{Text: e.Text(), Source: "feed:" + e.URL})
			if err != nil {
				return err
			}
			fmt.Printf("  Local: %s (%.3f)\n", r.Sentiment.Label, r.Sentiment.Compound)
			if r.Classification != nil {
				fmt.Printf("  %s\n", oneLine(*r.Classification, 100))
			} else {
				fmt.Println("  No classification returned.")
			}
		}
		return nil
	},
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", source.DefaultFeedLimit, "Number of feed items to classify")
	feedCmd.Flags().BoolVar(&feedDryRun, "dry-run", false, "Show ranked features without calling the service or saving")
}

// --- tui and serve commands ---

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// Logs would draw over the alternate screen.
		if !verbose {
			logging.Discard()
		}

		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		return tui.Run(ctx, svc.runner)
	},
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, svc.runner, svc.db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// service bundles what the run, feed, tui and serve commands share.
type service struct {
	db     *database.DB
	runner *runner.Runner
}

func newService(ctx context.Context) (*service, func(), error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	client, closeCache := classify.FromConfig(ctx, cfg)
	pipe, err := pipeline.FromConfig(cfg, client, db)
	if err != nil {
		closeCache()
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		closeCache()
		db.Close()
	}
	return &service{db: db, runner: runner.New(pipe)}, cleanup, nil
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.CheckpointPath())
}

func printSteps(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("Step %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

func printResult(result *pipeline.Result) {
	fmt.Printf("\nLocal score: %s (%.3f)\n", result.Sentiment.Label, result.Sentiment.Compound)
	if result.Classification == nil {
		fmt.Println("No classification returned.")
		return
	}
	fmt.Printf("\n%s\n", *result.Classification)
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
