package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mmcdole/elevate/internal/api"
	"github.com/mmcdole/elevate/internal/auth"
	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/catalog"
	"github.com/mmcdole/elevate/internal/checkout"
	"github.com/mmcdole/elevate/internal/config"
	"github.com/mmcdole/elevate/internal/jobboard"
	"github.com/mmcdole/elevate/internal/logging"
	"github.com/mmcdole/elevate/internal/payment"
	"github.com/mmcdole/elevate/internal/player"
	"github.com/mmcdole/elevate/internal/progress"
	"github.com/mmcdole/elevate/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "elevate",
		Short:        "Courses, lessons and jobs from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	root.AddCommand(
		coursesCmd(),
		courseCmd(),
		enrollCmd(),
		watchCmd(),
		progressCmd(),
		jobsCmd(),
		jobCmd(),
		saveCmd(),
		unsaveCmd(),
		savedCmd(),
		loginCmd(),
		registerCmd(),
		verifyOTPCmd(),
		forgotPasswordCmd(),
		resetPasswordCmd(),
		logoutCmd(),
		profileCmd(),
		cacheCmd(),
		tuiCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "elevate %s\n", Version)
		},
	}
}

// app holds every service a command may need. It is built per invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.CacheStore
	cache    *cache.Cache
	client   *api.Client
	catalog  *catalog.Service
	jobs     *jobboard.Service
	progress *progress.Tracker
	launcher *player.Launcher
	player   *player.Player
	auth     *auth.Service

	closers []io.Closer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}
	logger, closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		// fall back to a null logger if file logging fails
		logger = logging.NullLogger()
	} else if closer != nil {
		a.closers = append(a.closers, closer)
	}
	slog.SetDefault(logger)
	a.logger = logger

	st, err := store.Open(cfg.Cache.Dir, cfg.Server.URL, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	a.cache = cache.New(st, cache.WithPolicy(cfg.CachePolicy()), cache.WithLogger(logger))
	a.client = api.New(cfg.Server.URL, cfg.Sessions(),
		api.WithTimeout(cfg.Server.Timeout),
		api.WithRetries(cfg.Server.Retries),
		api.WithLogger(logger),
	)

	a.catalog = catalog.NewService(a.client, a.cache, logger)
	a.jobs = jobboard.NewService(a.client, a.cache, logger)
	a.progress = progress.NewTracker(a.client, a.cache, logger)
	a.launcher = player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger)
	a.player = player.New(a.launcher, player.WithLogger(logger))
	a.auth = auth.NewService(a.client, cfg, st, logger)

	logger.Info("starting elevate", "version", Version, "server", cfg.Server.URL)
	return a, nil
}

// payments builds the orchestrator; only enroll needs the checkout page.
func (a *app) payments() *payment.Orchestrator {
	co := checkout.NewBrowserCheckout(a.launcher,
		checkout.WithScriptURL(a.cfg.Checkout.ScriptURL),
		checkout.WithTimeout(a.cfg.Checkout.CallbackTimeout),
		checkout.WithLogger(a.logger),
	)
	return payment.New(a.client, co, a.catalog, payment.Config{
		Key:        a.cfg.Checkout.KeyID,
		Brand:      a.cfg.Checkout.Brand,
		Currency:   a.cfg.Checkout.Currency,
		ThemeColor: a.cfg.Checkout.ThemeColor,
	}, a.logger)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// withApp adapts a command body that needs the wired services.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), cmd, a, args)
	}
}
