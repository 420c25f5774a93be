package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/calobot/internal/metrics"
	"github.com/hitoshi/calobot/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Parser    WebhookParser
	Processor EventProcessor
	DB        Pinger
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware
//
// エンドポイントは3つのみ:
//
//	POST /webhook  LINEプラットフォームからのイベント受信
//	GET  /health   ヘルスチェック（DB疎通込み）
//	GET  /metrics  Prometheusメトリクス
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.Method(http.MethodPost, "/webhook", NewWebhookHandler(deps.Parser, deps.Processor))
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.DB))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	return r
}
