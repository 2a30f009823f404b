// Command roster manages the client roster from a terminal, over the same storage
// and exercise catalog as the service.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/2beens/fitcrm/internal"
	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/config"
	"github.com/2beens/fitcrm/internal/exercises"
	"github.com/2beens/fitcrm/internal/logging"
	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/views"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type rosterFlags struct {
	env        string
	configPath string
	logLevel   string
	ephemeral  bool
}

// app is what every command works with, built once the flags are parsed.
type app struct {
	out       io.Writer
	backend   *internal.Backend
	repo      *clients.Repo
	provider  *exercises.Provider
	presenter *views.Presenter
	nav       *views.Navigator
	renderer  *views.TermRenderer
	cfg       *config.Config
}

func (a *app) show(page views.Page) {
	_, _ = fmt.Fprintln(a.out, a.renderer.Render(page))
}

func (a *app) close() error {
	if a == nil || a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func newApp(ctx context.Context, out io.Writer, flags *rosterFlags) (*app, error) {
	cfg, err := config.Load(flags.env, flags.configPath)
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.LoggerSetupParams{
		LogLevel:    flags.logLevel,
		Console:     os.Stderr,
		Environment: cfg.Environment,
	})

	backend, err := internal.OpenBackend(ctx, internal.OpenBackendParams{
		Config:        cfg,
		RedisPassword: os.Getenv("FITCRM_REDIS_PASS"),
		Ephemeral:     flags.ephemeral,
	})
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	// counted, never exported
	metricsManager := metrics.NewManager("fitcrm", "roster", prometheus.NewRegistry())
	repo := clients.NewRepo(
		clients.NewRecordStore(backend.Slot, metricsManager),
		metricsManager,
		clients.WithIDGenerator(clients.IDGeneratorForScheme(cfg.IDScheme)),
	)
	provider := exercises.NewProvider(
		cfg.CatalogURL,
		&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.CatalogTimeout,
		},
		metricsManager,
		exercises.WithCacheTTL(cfg.CatalogCacheTTL),
	)

	return &app{
		out:       out,
		backend:   backend,
		repo:      repo,
		provider:  provider,
		presenter: views.NewPresenter(repo, provider, cfg.SuggestionsCount),
		nav:       views.NewNavigator(),
		renderer:  views.NewTermRenderer(),
		cfg:       cfg,
	}, nil
}

func newRootCmd() *cobra.Command {
	flags := &rosterFlags{}
	var a *app

	rootCmd := &cobra.Command{
		Use:           "roster",
		Short:         "Manage the fitness client roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), cmd.OutOrStdout(), flags)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "./config.toml", "path for the TOML config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level")
	rootCmd.PersistentFlags().BoolVar(&flags.ephemeral, "ephemeral", false, "keep the roster in memory only")

	getApp := func() *app { return a }
	rootCmd.AddCommand(
		newListCmd(getApp),
		newFindCmd(getApp),
		newShowCmd(getApp),
		newAddCmd(getApp),
		newEditCmd(getApp),
		newDeleteCmd(getApp),
		newHistoryCmd(getApp),
		newSuggestCmd(getApp),
		newSeedCmd(getApp),
	)

	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
