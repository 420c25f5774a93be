package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/calobot/internal/ai"
	"github.com/hitoshi/calobot/internal/bot"
	"github.com/hitoshi/calobot/internal/calendar"
	"github.com/hitoshi/calobot/internal/coach"
	"github.com/hitoshi/calobot/internal/config"
	"github.com/hitoshi/calobot/internal/database"
	"github.com/hitoshi/calobot/internal/handler"
	"github.com/hitoshi/calobot/internal/imagehost"
	"github.com/hitoshi/calobot/internal/line"
	"github.com/hitoshi/calobot/internal/logger"
	"github.com/hitoshi/calobot/internal/metrics"
	"github.com/hitoshi/calobot/internal/repository"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebhookサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	foodRepo := repository.NewPostgresFoodLogRepo(db)
	goalRepo := repository.NewPostgresUserGoalRepo(db)
	cacheRepo := repository.NewPostgresCoachCacheRepo(db)

	// 3. 外部サービスクライアントの初期化
	lineClient, err := line.New(cfg.LineChannelSecret, cfg.LineChannelAccessToken)
	if err != nil {
		return fmt.Errorf("failed to create line client: %w", err)
	}

	aiClient := ai.NewOpenAIClient(ai.Config{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.OpenAIModel,
		Timeout:   cfg.OpenAITimeout,
		MaxTokens: cfg.OpenAIMaxTokens,
	})

	uploader := imagehost.NewCloudinaryClient(imagehost.Config{
		CloudName:    cfg.CloudinaryCloudName,
		UploadPreset: cfg.CloudinaryUploadPreset,
		Timeout:      cfg.CloudinaryTimeout,
	})

	// 4. レートリミッターの初期化（req/min -> req/sec に変換）
	limiterCfg := ai.DefaultRateLimiterConfig()
	if cfg.RateLimitEstimate > 0 {
		limiterCfg.Rate = rate.Limit(float64(cfg.RateLimitEstimate) / 60.0)
		limiterCfg.Burst = cfg.RateLimitEstimate
	}
	limiter := ai.NewUserRateLimiter(limiterCfg)
	defer limiter.Stop()

	// 5. ドメインサービスの初期化
	coachCache := coach.NewCacheService(cacheRepo, aiClient)

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 7. プロセッサとルーターの構築
	processor := bot.NewProcessor(bot.Config{
		Messenger:  lineClient,
		Fetcher:    lineClient,
		Estimator:  aiClient,
		Uploader:   uploader,
		Limiter:    limiter,
		FoodRepo:   foodRepo,
		GoalRepo:   goalRepo,
		CoachCache: coachCache,
		Calendar:   calendar.New(calendar.SystemClock{}),
		Metrics:    collector,
	})

	router := handler.NewRouter(&handler.RouterDeps{
		Parser:    lineClient,
		Processor: processor,
		DB:        db,
		Gatherer:  registry,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("webhook server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down webhook server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("webhook server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
