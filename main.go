package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fintrack/cache"
	"fintrack/config"
	"fintrack/database"
	"fintrack/events"
	"fintrack/logger"
	"fintrack/router"
	"fintrack/service"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// @title FinTrack API
// @version 1.0
// @description 个人记账 API：收支记录、类别、预算、统计与导出
// @host localhost:5000
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const version = "1.0.0"

var (
	configFile  string
	port        string
	showVersion bool
	workerMode  bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 5000 或 :5000")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
	flag.BoolVar(&workerMode, "worker", false, "以预算提醒消费者模式运行")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Printf("FinTrack v%s", version)
		return
	}

	// .env 不存在时忽略
	if err := godotenv.Load(); err == nil {
		log.Println("已加载 .env")
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Printf("命令行指定端口: %s", port)
	}

	config.PrintConfig()
	logger.Init(cfg.Server.Mode)

	if err := database.Init(cfg); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if workerMode {
		if err := runWorker(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("worker 退出: %v", err)
		}
		return
	}

	if err := runServer(ctx, cfg); err != nil {
		log.Fatalf("服务器退出: %v", err)
	}
}

// runServer 启动 HTTP 服务和定时任务，ctx 结束后优雅退出
func runServer(ctx context.Context, cfg *config.Config) error {
	analytics := service.NewAnalyticsService(database.DB)

	var publisher service.AlertPublisher
	if cfg.AMQP.Enabled {
		client, err := events.NewClient(cfg.AMQP)
		if err != nil {
			slog.Warn("AMQP unavailable, budget alerts disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	var responseCache *cache.ResponseCache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, response cache disabled", "error", err)
		} else {
			defer rdb.Close()
			responseCache = cache.NewResponseCache(cache.NewRedisStore(rdb), cfg.Redis.TTL)
		}
	}

	r := router.SetupRouter(router.Deps{
		Config:    cfg,
		Tokens:    service.NewTokenService(cfg.JWT),
		Analytics: analytics,
		Alerter:   service.NewBudgetAlerter(analytics, publisher),
		Cache:     responseCache,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Scheduler.Enabled {
		scheduler, err := service.NewScheduler(database.DB, cfg.Scheduler)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			scheduler.Stop()
			return nil
		})
	}

	g.Go(func() error {
		log.Printf("==========================================")
		log.Printf("  FinTrack 已启动")
		log.Printf("==========================================")
		log.Printf("  Swagger:  http://localhost%s/swagger/index.html", cfg.Server.Port)
		log.Printf("  API接口:  http://localhost%s/api/", cfg.Server.Port)
		log.Printf("==========================================")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runWorker 消费预算提醒并发送邮件
func runWorker(ctx context.Context, cfg *config.Config) error {
	if !cfg.AMQP.Enabled {
		return errors.New("worker mode requires amqp.enabled")
	}
	client, err := events.NewClient(cfg.AMQP)
	if err != nil {
		return err
	}
	defer client.Close()

	notifier := service.NewBudgetAlertNotifier(database.DB, service.NewEmailService(&cfg.Email))
	slog.Info("budget alert worker started", "queue", cfg.AMQP.Queue)
	return client.ConsumeBudgetAlerts(ctx, notifier.Handle)
}
