package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/sentinela/internal/api"
	"github.com/good-yellow-bee/sentinela/internal/engine"
	"github.com/good-yellow-bee/sentinela/internal/metrics"
	"github.com/good-yellow-bee/sentinela/internal/notifier"
	"github.com/good-yellow-bee/sentinela/internal/scheduler"
	"github.com/good-yellow-bee/sentinela/internal/storage"
	"github.com/good-yellow-bee/sentinela/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinela",
	Short: "Sentinela - CRM alert engine",
	Long: `Sentinela evaluates monitoring rules over CRM data and login
telemetry, creating deduplicated alerts for responsible users and
administrators.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sentinela %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP API listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	durations, err := cfg.ParseDurations()
	if err != nil {
		return err
	}

	// Secrets come from the environment only
	jwtSecret := os.Getenv("SENTINELA_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("SENTINELA_JWT_SECRET environment variable is required")
	}
	serviceKey := os.Getenv("SENTINELA_SERVICE_KEY")
	if serviceKey == "" {
		return fmt.Errorf("SENTINELA_SERVICE_KEY environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize CRM storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	if err := store.EnsureDefaultRules(); err != nil {
		return fmt.Errorf("ensure default rules: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Login telemetry store; the security job stays disabled without it
	var telemetry storage.TelemetryStore
	if cfg.ClickHouse.Enabled() {
		ch := storage.NewClickHouseTelemetry(&storage.ClickHouseConfig{
			Addresses:     cfg.ClickHouse.Addresses,
			Database:      cfg.ClickHouse.Database,
			Username:      cfg.ClickHouse.Username,
			Password:      cfg.ClickHouse.Password,
			Compression:   cfg.ClickHouse.Compression,
			RetentionDays: cfg.ClickHouse.RetentionDays,
		})
		if err := ch.Open(); err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer ch.Close()

		if err := ch.Migrate(); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
		telemetry = ch
		log.Printf("telemetry store connected: %v", cfg.ClickHouse.Addresses)
	} else {
		log.Printf("no clickhouse configured, security job disabled")
	}

	// Notification channels for critical alerts
	dispatcher := notifier.NewDispatcher(notifier.RateLimitConfig{
		PerMinute: cfg.Notify.RatePerMinute,
		Enabled:   true,
	})
	defer dispatcher.Close()

	if cfg.Notify.Slack.Enabled {
		slack, err := notifier.NewSlackNotifier(notifier.SlackConfig{
			WebhookURL: cfg.Notify.Slack.WebhookURL,
			BaseURL:    cfg.Notify.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("create slack notifier: %w", err)
		}
		dispatcher.Register(slack)
		log.Printf("slack notifications enabled")
	}
	if cfg.Notify.Email.Enabled {
		email, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:       cfg.Notify.Email.Host,
			Port:       cfg.Notify.Email.Port,
			Username:   cfg.Notify.Email.Username,
			Password:   cfg.Notify.Email.Password,
			From:       cfg.Notify.Email.From,
			Recipients: cfg.Notify.Email.Recipients,
			BaseURL:    cfg.Notify.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("create email notifier: %w", err)
		}
		dispatcher.Register(email)
		log.Printf("email notifications enabled, %d recipients", len(cfg.Notify.Email.Recipients))
	}

	// Evaluation engine
	runner, err := engine.NewRunner(store, telemetry, engine.Options{
		BusinessLookback: durations.BusinessLookback,
		SecurityLookback: durations.SecurityLookback,
		Sink:             dispatcher,
	})
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	// HTTP API
	apiServer, err := api.New(&api.Config{
		Address:        cfg.Server.Address,
		JWTSecret:      []byte(jwtSecret),
		ServiceKey:     serviceKey,
		AccessTokenTTL: durations.AccessTokenTTL,
		RateLimitPerIP: cfg.Auth.RateLimitPerIP,
		Verbose:        cfg.Verbose,
	}, store, runner)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress)

	sched, err := scheduler.New(runner, scheduler.Config{
		IntervalBusiness: durations.IntervalBusiness,
		IntervalSecurity: durations.IntervalSecurity,
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting sentinela %s", config.Version)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Run(ctx)
	})

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- metricsServer.Start() }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	})

	g.Go(func() error {
		return sched.Run(ctx)
	})

	if configFile != "" {
		g.Go(func() error {
			return sched.Watch(ctx, configFile, loadSchedulerConfig)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	log.Printf("sentinela stopped")
	return nil
}

// loadSchedulerConfig reloads only the scheduler intervals from the
// config file. Everything else requires a restart.
func loadSchedulerConfig(path string) (scheduler.Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return scheduler.Config{}, err
	}
	durations, err := cfg.ParseDurations()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		IntervalBusiness: durations.IntervalBusiness,
		IntervalSecurity: durations.IntervalSecurity,
	}, nil
}
