package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/config"
	"github.com/hamed0406/pingwatch/internal/display"
	"github.com/hamed0406/pingwatch/internal/httpapi"
	apimw "github.com/hamed0406/pingwatch/internal/httpapi/middleware"
	"github.com/hamed0406/pingwatch/internal/indicator"
	"github.com/hamed0406/pingwatch/internal/logging"
	"github.com/hamed0406/pingwatch/internal/notify"
	"github.com/hamed0406/pingwatch/internal/outage"
	"github.com/hamed0406/pingwatch/internal/probe"
	"github.com/hamed0406/pingwatch/internal/repo"
	"github.com/hamed0406/pingwatch/internal/repo/memory"
	pg "github.com/hamed0406/pingwatch/internal/repo/postgres"
	"github.com/hamed0406/pingwatch/internal/repo/sqlite"
	"github.com/hamed0406/pingwatch/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, cfg.LogStderr)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pingwatch_failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("pingwatch_exit")
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, logger *zap.Logger) error {
	prober, err := probe.New(probe.Config{
		Mode:          cfg.ProbeMode,
		Port:          cfg.ProbePort,
		Timeout:       cfg.ProbeTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff,
	})
	if err != nil {
		return err
	}

	mon, err := outage.NewMonitor(cfg.FailureThreshold, cfg.OutageCapacity)
	if err != nil {
		return err
	}

	ind, closeInd, err := buildIndicator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeInd()

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier notify.Multi
	notifier = append(notifier, notify.Log{Logger: logger})
	if cfg.SlackWebhookURL != "" {
		notifier = append(notifier, notify.NewSlack(cfg.SlackWebhookURL))
	}
	alerter := scheduler.NewAlerter(logger, notifier, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	})

	feed := httpapi.NewFeed(cfg.Target)
	renderers := display.Multi{feed}
	if cfg.Console {
		renderers = append(renderers, display.NewConsoleFor(os.Stdout))
	}

	runner := scheduler.NewRunner(logger, cfg.Target, prober, mon, cfg.TickInterval, cfg.ProbeTimeout)
	runner.LockFile = cfg.LockFile
	runner.Indicator = ind
	runner.Display = renderers
	runner.Store = store
	runner.Alerter = alerter

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = alerter.Run(ctx)
	}()

	var httpSrv *http.Server
	if cfg.Addr != "" {
		api := httpapi.NewServer(logger, cfg.Target, mon)
		api.Store = store
		api.Feed = feed
		api.Stop = stop
		keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
		httpSrv = &http.Server{
			Addr:              cfg.Addr,
			Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("api_listen", zap.String("addr", cfg.Addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api_error", zap.Error(err))
				stop()
			}
		}()
	}

	err = runner.Run(ctx)

	// lock file removal ends the run without cancelling ctx
	stop()
	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpSrv.Shutdown(shutdownCtx)
		cancel()
	}
	_ = ind.SetAlert(context.Background(), false)
	wg.Wait()
	return err
}

func buildIndicator(cfg config.Config, logger *zap.Logger) (indicator.Indicator, func(), error) {
	sinks := indicator.Multi{indicator.Log{Logger: logger}}
	closers := []func(){}

	if cfg.GPIOPin >= 0 {
		g, err := indicator.OpenGPIO(cfg.GPIORoot, cfg.GPIOPin)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, g)
		logger.Info("gpio_ready", zap.Int("pin", cfg.GPIOPin))
	}
	if cfg.ModbusAddr != "" {
		m, err := indicator.OpenModbus(indicator.ModbusConfig{
			Endpoint: cfg.ModbusAddr,
			SlaveID:  cfg.ModbusSlaveID,
			Coil:     cfg.ModbusCoil,
			Timeout:  cfg.ProbeTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, m)
		closers = append(closers, func() { _ = m.Close() })
		logger.Info("modbus_ready", zap.String("endpoint", cfg.ModbusAddr), zap.Uint16("coil", cfg.ModbusCoil))
	}
	return indicator.NewLatch(sinks), func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.OutageStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		s, err := pg.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		logger.Info("store_postgres")
		return s, s.Close, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store_sqlite", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil
	default:
		logger.Info("store_memory")
		return memory.New(), func() {}, nil
	}
}
