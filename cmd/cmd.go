package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/yolink-integration/internal/pkg/config"
	"github.com/anicoll/yolink-integration/internal/pkg/database"
	"github.com/anicoll/yolink-integration/internal/pkg/database/migration"
	"github.com/anicoll/yolink-integration/internal/pkg/mqtt"
	"github.com/anicoll/yolink-integration/internal/pkg/poller"
	"github.com/anicoll/yolink-integration/internal/pkg/publisher"
	"github.com/anicoll/yolink-integration/internal/pkg/server"
	"github.com/anicoll/yolink-integration/internal/pkg/yolink"
)

var errCron = errors.New("cron error")

func YolinkCommand(ctx *cli.Context) error {
	sinkCfg, err := config.LoadSinkConfig()
	if err != nil {
		return err
	}
	yolinkCfg := &config.YolinkConfig{
		ClientID:     ctx.String("client-id"),
		ClientSecret: ctx.String("client-secret"),
		Host:         ctx.String("api-host"),
		DeviceIDs:    parseDeviceIDs(ctx.StringSlice("device-ids")),
		PollInterval: ctx.Duration("poll-interval"),
		RequestDelay: ctx.Duration("request-delay"),
		HTTPTimeout:  ctx.Duration("http-timeout"),
	}
	cfg := &config.Config{
		YolinkCfg:  yolinkCfg.WithDefaults(),
		SinkCfg:    sinkCfg,
		ListenAddr: ctx.String("listen-addr"),
		LogLevel:   ctx.String("log-level"),
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	err = start(ctx.Context, cfg)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// start builds the concrete services described by cfg and hands them to run.
func start(ctx context.Context, cfg *config.Config) error {
	dashboard := server.New()
	defer dashboard.Close()

	registry := publisher.New()
	if err := registry.RegisterPublisher("dashboard", dashboard); err != nil {
		return err
	}

	var store StateStore
	if cfg.SinkCfg.DatabaseEnabled() {
		if err := migration.Migrate(cfg.SinkCfg.DatabaseURL, cfg.SinkCfg.MigrationsFolder); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		db, err := database.Connect(ctx, cfg.SinkCfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := registry.RegisterPublisher("postgres", db); err != nil {
			return err
		}
		store = db
	}

	if cfg.SinkCfg.MqttEnabled() {
		mqttSvc := mqtt.New(mqtt.NewClient(cfg.SinkCfg))
		if err := mqttSvc.Connect(); err != nil {
			return fmt.Errorf("connect to mqtt broker: %w", err)
		}
		defer mqttSvc.Close()
		if err := registry.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	httpClient := yolink.NewHTTPClient(cfg.YolinkCfg.HTTPTimeout)
	p := poller.New(
		yolink.NewTokenManager(cfg.YolinkCfg, httpClient),
		yolink.NewClient(cfg.YolinkCfg, httpClient),
		registry,
	)

	return run(ctx, cfg, p, dashboard, store, make(chan error, 100))
}

func run(ctx context.Context, cfg *config.Config, p PollerService, dashboard *server.Server, store StateStore, errorChan chan error) error {
	logger := zap.L()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		srv := &http.Server{
			Handler:      dashboard.Handler(),
			Addr:         cfg.ListenAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("serving dashboard", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := cfg.YolinkCfg.Validate(); err != nil {
		// the dashboard keeps showing the problem; nothing is polled.
		logger.Error("invalid configuration", zap.Error(err))
		dashboard.SetConfigError(err)
	} else {
		if store != nil {
			seed(ctx, p, store)
			eg.Go(func() error {
				return cronDbCleanup(ctx, store, cfg.SinkCfg, errorChan)
			})
		}
		eg.Go(func() error {
			return p.Run(ctx, poller.Settings{
				Interval:     cfg.YolinkCfg.PollInterval,
				DeviceIDs:    cfg.YolinkCfg.DeviceIDs,
				RequestDelay: cfg.YolinkCfg.RequestDelay,
			})
		})
	}

	eg.Go(func() error {
		// handle any async errors from services
		for {
			select {
			case err := <-errorChan:
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					return err
				}
				logger.Warn("async error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

func seed(ctx context.Context, p PollerService, store StateStore) {
	states, err := store.LoadLatest(ctx)
	if err != nil {
		zap.L().Warn("unable to load last known device state", zap.Error(err))
		return
	}
	p.Seed(states)
	zap.L().Info("seeded last known device state", zap.Int("devices", len(states)))
}

func cronDbCleanup(ctx context.Context, store StateStore, cfg *config.SinkConfig, errChan chan error) error {
	cleanup := func() error {
		removed, err := store.Cleanup(ctx, cfg.StaleAfter)
		if err != nil {
			return err
		}
		zap.L().Info("removed stale devices", zap.Int64("removed", removed))
		return nil
	}
	if err := cleanup(); err != nil {
		return err
	}

	// CRON automation
	c := cron.New()
	if _, err := c.AddFunc(cfg.CleanupSchedule, func() {
		if err := cleanup(); err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
			errChan <- fmt.Errorf("%w: %w", errCron, err)
		}
	}); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// parseDeviceIDs accepts repeated flags as well as comma separated values.
func parseDeviceIDs(values []string) []string {
	ids := lo.FlatMap(values, func(v string, _ int) []string {
		return strings.Split(v, ",")
	})
	ids = lo.Map(ids, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})
	return lo.Uniq(lo.Compact(ids))
}
