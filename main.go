package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wham/gitlab-timereport/internal/config"
	"github.com/wham/gitlab-timereport/internal/extract"
	"github.com/wham/gitlab-timereport/internal/gitlab"
	"github.com/wham/gitlab-timereport/internal/progress"
	"github.com/wham/gitlab-timereport/internal/store"
)

// Version information (set via ldflags at build time)
var (
	Version   = "dev"
	BuildDate = "unknown"
)

const itemDatabase = "database"

// flags holds the raw command-line values; only flags the user set override
// the loaded config.
type flags struct {
	uri         string
	token       string
	group       string
	force       bool
	configFile  string
	homeDir     string
	timeout     string
	concurrency int
	verbose     bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "gitlab-timereport [out-file]",
		Short: "Export GitLab time tracking of a group into SQLite",
		Long: `gitlab-timereport fetches the projects, milestones, issues, merge requests,
time logs and users of a GitLab group through the GraphQL API and writes them
into a new SQLite database.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       fmt.Sprintf("%s (%s)", Version, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f, args)
			if err != nil {
				return err
			}

			if err := config.PrepareOutFile(cfg.OutFile, cfg.Force); errors.Is(err, config.ErrOutFileExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "Out file '%s' already exists. Use --force to overwrite.\n", cfg.OutFile)
				return nil
			} else if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reporter, stopLogging := setupLogging(cfg, stop)
			err = run(ctx, cfg, reporter)
			stopLogging()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote database to file %s\n", cfg.OutFile)
			return nil
		},
	}
	cmd.SetVersionTemplate("gitlab-timereport {{.Version}}\n")

	fs := cmd.Flags()
	fs.StringVarP(&f.uri, "uri", "u", "", "GraphQL API URI, usually https://gitlab.com/api/graphql (or set GITLAB_URI)")
	fs.StringVarP(&f.token, "token", "t", "", "Personal access token used for fetching (or set GITLAB_TOKEN)")
	fs.StringVarP(&f.group, "group", "g", "", "Name of the GitLab group to fetch (or set GITLAB_GROUP)")
	fs.BoolVarP(&f.force, "force", "f", false, "Overwrite out file, keeping the old one as <out-file>~")
	fs.StringVar(&f.configFile, "config", "", "Config file (default <home>/config.toml)")
	fs.StringVarP(&f.homeDir, "home", "m", "", "Home directory (default ~/.gitlab-timereport)")
	fs.StringVar(&f.timeout, "timeout", "", "Per-request timeout, e.g. 45s (default 30s)")
	fs.IntVar(&f.concurrency, "concurrency", config.DefaultConcurrency, "Number of projects fetched at a time")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log every request to stderr instead of showing progress")

	return cmd
}

// loadConfig merges file, env and flags, then fills in what is still missing.
func loadConfig(cmd *cobra.Command, f flags, args []string) (*config.Config, error) {
	cfg, err := config.Load(f.homeDir, f.configFile)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("uri") {
		cfg.URI = f.uri
	}
	if fs.Changed("token") {
		cfg.Token = f.token
	}
	if fs.Changed("group") {
		cfg.Group = f.group
	}
	if fs.Changed("timeout") {
		timeout, err := config.ParseTimeout(f.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	cfg.Force = f.force
	cfg.Verbose = f.verbose
	if len(args) == 1 {
		cfg.OutFile = args[0]
	}
	cfg.Normalize()

	if cfg.Token == "" {
		token, err := config.PromptToken(os.Stdin, os.Stderr)
		if err != nil && !errors.Is(err, config.ErrNotTerminal) {
			return nil, err
		}
		cfg.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.OutFile == "" {
		cfg.OutFile = config.DefaultOutFile(cfg.Group)
	}
	return cfg, nil
}

// setupLogging shows the progress box when stderr is a terminal, otherwise
// logs text records to stderr. The returned func restores plain logging.
func setupLogging(cfg *config.Config, interrupt func()) (progress.Reporter, func()) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	textLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Verbose || !term.IsTerminal(int(os.Stderr.Fd())) {
		slog.SetDefault(textLogger)
		return progress.Discard, func() {}
	}

	ui := progress.NewUI("GitLab time report: "+cfg.GroupPath(), []string{
		extract.ItemProjects,
		extract.ItemIssues,
		extract.ItemMergeRequests,
		extract.ItemUsers,
		itemDatabase,
	}, interrupt)
	ui.Start()
	slog.SetDefault(slog.New(ui.Handler(level)))

	return ui, func() {
		ui.Stop()
		slog.SetDefault(textLogger)
	}
}

// run fetches the configured group and writes it to cfg.OutFile.
func run(ctx context.Context, cfg *config.Config, reporter progress.Reporter) error {
	httpClient := gitlab.NewHTTPClient(ctx, cfg.Token, cfg.Timeout, func(c gitlab.StatusCounters) {
		reporter.UpdateAPIStatus(c.Success2XX, c.Error4XX, c.Error5XX+c.Failed)
	})
	client := gitlab.NewClient(cfg.URI, httpClient)

	slog.Info("Starting extraction", "uri", cfg.URI, "group", cfg.GroupPath(), "out_file", cfg.OutFile,
		"timeout", cfg.Timeout, "concurrency", cfg.Concurrency)

	orchestrator := extract.New(extract.NewSources(client),
		extract.WithProgress(reporter),
		extract.WithConcurrency(cfg.Concurrency),
	)
	res, err := orchestrator.Run(ctx, cfg.Group)
	if err != nil {
		return err
	}

	reporter.SetCurrentItem(itemDatabase)
	if err := store.Write(ctx, cfg.OutFile, res); err != nil {
		reporter.MarkItemFailed(itemDatabase, err.Error())
		return fmt.Errorf("write %s: %w", cfg.OutFile, err)
	}
	reporter.MarkItemCompleted(itemDatabase,
		len(res.Users)+len(res.Projects)+len(res.Milestones)+len(res.Issues)+len(res.MergeRequests)+len(res.TimeLogs))
	reporter.Log("✅ Database written to %s", cfg.OutFile)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
