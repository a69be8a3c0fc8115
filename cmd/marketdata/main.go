package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	marketdatamysql "github.com/wyfcoding/papertrading/internal/marketdata/infrastructure/persistence/mysql"
	marketdataredis "github.com/wyfcoding/papertrading/internal/marketdata/infrastructure/persistence/redis"
	"github.com/wyfcoding/papertrading/internal/marketdata/interfaces/consumer"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/marketdata/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger := logging.NewFromConfig(&logging.Config{
		Service:    cfg.Server.Name,
		Module:     "marketdata",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(logger.Logger)

	// 3. 初始化指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHTTP(cfg.Metrics.Port)
	}

	// 4. 初始化基础设施
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	// Auto Migrate (仅用于开发方便)
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(&domain.DailyClose{}); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	// 5. 组装行情消费链路
	quoteRepo := marketdataredis.NewQuoteRedisRepository(redisCache.GetClient())
	closeRepo := marketdatamysql.NewDailyCloseRepository(db.RawDB())
	commandSvc := application.NewMarketDataCommandService(quoteRepo, closeRepo, logger.Logger)
	handler := consumer.NewPriceTickHandler(commandSvc, logger.Logger)

	kafkaConsumer := kafka.NewConsumer(&cfg.MessageQueue.Kafka, logger, metricsImpl)

	// 6. 启动与优雅关闭
	g, ctx := errgroup.WithContext(context.Background())
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error {
		slog.Info("price tick consumer starting",
			"topic", cfg.MessageQueue.Kafka.Topic, "group", cfg.MessageQueue.Kafka.GroupID)
		kafkaConsumer.Start(consumerCtx, 4, handler.HandlePriceTick)
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down consumer...")
		case <-ctx.Done():
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("consumer exited with error", "error", err)
	}
}
