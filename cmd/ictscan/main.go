package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skalibog/ictscan/internal/analysis/aggregator"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/internal/exchange"
	"github.com/skalibog/ictscan/internal/feed"
	"github.com/skalibog/ictscan/internal/storage"
	"github.com/skalibog/ictscan/internal/ui"
	"github.com/skalibog/ictscan/pkg/logger"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	once := flag.Bool("once", false, "выполнить один расчет и выйти")
	asJSON := flag.Bool("json", false, "выводить результат в JSON")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	opts := logger.Options{Level: "info"}
	if cfgErr == nil {
		opts = logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}
	}
	if err := logger.Init(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.String("path", *configPath), zap.Error(cfgErr))
	}
	logger.Info("Загружена конфигурация",
		zap.Strings("symbols", cfg.Trading.Symbols),
		zap.String("interval", cfg.Trading.Interval),
		zap.String("htf_interval", cfg.HTFInterval()),
		zap.String("source", cfg.Trading.Source))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := newSource(ctx, cfg)
	if err != nil {
		logger.Fatal("Ошибка инициализации источника свечей", zap.Error(err))
	}
	defer closeSource()

	analyzer := aggregator.NewAnalyzer(cfg, feed.New(source, cfg.Feed, cfg.Trading.CandleLimit))

	if cfg.Metrics.Addr != "" && !*once {
		go serveMetrics(ctx, cfg.Metrics.Addr)
	}

	run := func() {
		reports := analyzer.GenerateReports(ctx)
		if err := output(reports, cfg.UI, *asJSON); err != nil {
			logger.Error("Ошибка вывода отчета", zap.Error(err))
		}
	}

	run()
	if *once {
		return
	}

	ticker := time.NewTicker(time.Duration(cfg.Analysis.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			logger.Info("Завершение работы")
			return
		}
	}
}

// newSource создает источник свечей по конфигурации
func newSource(ctx context.Context, cfg *config.Config) (feed.Source, func(), error) {
	switch cfg.Trading.Source {
	case "influxdb":
		store, err := storage.NewInfluxDBStorage(ctx, cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return exchange.NewBinanceClient(cfg.Binance), func() {}, nil
	}
}

func output(reports map[string]*aggregator.Result, cfg config.UIConfig, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	_, err := fmt.Fprint(os.Stdout, ui.Render(reports, cfg))
	return err
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Метрики доступны", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Ошибка сервера метрик", zap.Error(err))
	}
}
