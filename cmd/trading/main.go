package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	marketdatamysql "github.com/wyfcoding/papertrading/internal/marketdata/infrastructure/persistence/mysql"
	marketdataredis "github.com/wyfcoding/papertrading/internal/marketdata/infrastructure/persistence/redis"
	"github.com/wyfcoding/papertrading/internal/trading/application"
	"github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/internal/trading/infrastructure/persistence/mysql"
	"github.com/wyfcoding/papertrading/internal/trading/infrastructure/pricing"
	httpserver "github.com/wyfcoding/papertrading/internal/trading/interfaces/http"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/pkg/middleware"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/trading/config.toml", "config file path")

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
		Module:     "trading",
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
		go metricsImpl.ExposeHttp(cfg.Metrics.Port)
	}

	// 4. 初始化基础设施
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	// Auto Migrate (仅用于开发方便)
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&domain.Wallet{}, &domain.Position{}, &domain.Order{},
			&domain.Trade{}, &domain.LedgerEntry{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.NewRedisCache(cfg.Data.Redis)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	// 5. 初始化仓储与行情取价器
	walletRepo := mysql.NewWalletRepository(db.RawDB())
	positionRepo := mysql.NewPositionRepository(db.RawDB())
	orderRepo := mysql.NewOrderRepository(db.RawDB())
	tradeRepo := mysql.NewTradeRepository(db.RawDB())
	ledgerRepo := mysql.NewLedgerRepository(db.RawDB())
	txManager := mysql.NewTxManager(db.RawDB())

	quoteRepo := marketdataredis.NewQuoteRedisRepository(redisCache.GetClient())
	closeRepo := marketdatamysql.NewDailyCloseRepository(db.RawDB())
	oracle := pricing.NewOracle(quoteRepo, closeRepo, pricing.NewTradingCalendar(), logger.Logger)

	// 6. 初始化应用服务
	commandSvc := application.NewTradingCommandService(
		walletRepo, positionRepo, orderRepo, tradeRepo, ledgerRepo, oracle, txManager, logger.Logger)
	querySvc := application.NewTradingQueryService(
		walletRepo, positionRepo, orderRepo, tradeRepo, ledgerRepo, oracle, logger.Logger)
	appService := application.NewTradingService(commandSvc, querySvc)

	// 7. 初始化接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger.Logger))
	r.Use(middleware.Recovery(logger.Logger))

	handler := httpserver.NewTradingHandler(appService)
	authed := r.Group("/", middleware.JWTAuth(cfg.JWT.Secret))
	handler.RegisterRoutes(authed)

	// 8. 启动与优雅关闭
	g, ctx := errgroup.WithContext(context.Background())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTP.Port),
		Handler: r,
	}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down server...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
