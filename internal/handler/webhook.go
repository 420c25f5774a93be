package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/calobot/internal/line"
)

// WebhookParser はLINEプラットフォームからのリクエストを検証・解析する。
type WebhookParser interface {
	ParseWebhook(r *http.Request) ([]line.Event, error)
}

// EventProcessor は解析済みイベントのバッチを処理する。
type EventProcessor interface {
	ProcessBatch(ctx context.Context, events []line.Event)
}

// WebhookHandler はLINE Webhookエンドポイントのハンドラー。
//
// LINEプラットフォームは200以外の応答を再送するため、
// イベント処理中のエラーはここまで伝播させず常に200を返す。
// 400を返すのは署名検証・ボディ解析に失敗したリクエストのみ。
type WebhookHandler struct {
	parser    WebhookParser
	processor EventProcessor
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(parser WebhookParser, processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{parser: parser, processor: processor}
}

// ServeHTTP はPOST /webhook を処理する。
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	events, err := h.parser.ParseWebhook(r)
	if err != nil {
		if errors.Is(err, line.ErrInvalidSignature) {
			slog.Warn("webhook signature verification failed")
		} else {
			slog.Warn("webhook parse failed", slog.String("error", err.Error()))
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.processor.ProcessBatch(r.Context(), events)
	w.WriteHeader(http.StatusOK)
}
