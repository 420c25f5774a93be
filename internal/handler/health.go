package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Pinger は依存先（DB）の疎通確認を提供する。
type Pinger interface {
	Ping() error
}

// HealthHandler は GET /health のハンドラー。
// DBへの疎通が取れない場合は503を返す。
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// ServeHTTP はヘルスチェックリクエストを処理する。
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.db.Ping(); err != nil {
		slog.Error("health check: database unreachable", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
