package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/calobot/internal/coach"
	"github.com/hitoshi/calobot/internal/model"
)

func newTestClient(serverURL string) *OpenAIClient {
	return NewOpenAIClient(Config{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "gpt-4o-mini",
	})
}

func chatResponseBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestOpenAIClient_EstimateText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatResponseBody(`{"items":[{"name":"カレーライス","kcal":800,"protein":20,"fat":25,"carbs":110}],"total":{"name":"合計","kcal":800,"protein":20,"fat":25,"carbs":110},"point":"野菜を足しましょう"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	raw, err := client.EstimateText(context.Background(), "カレーライス")
	if err != nil {
		t.Fatalf("EstimateText() error = %v", err)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("リクエストパス = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorizationヘッダー = %q", gotAuth)
	}

	var req chatRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("リクエストボディのデコードに失敗: %v", err)
	}
	if req.Model != "gpt-4o-mini" {
		t.Errorf("モデル = %q, want gpt-4o-mini", req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("メッセージ数 = %d, want 2", len(req.Messages))
	}

	if !strings.Contains(raw, "カレーライス") {
		t.Errorf("応答が想定と違う: %q", raw)
	}
}

func TestOpenAIClient_EstimateImage_画像URLをimage_urlブロックで送る(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, chatResponseBody(`{"items":[],"total":{"kcal":0},"point":""}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.EstimateImage(context.Background(), "https://example.com/photo.jpg"); err != nil {
		t.Fatalf("EstimateImage() error = %v", err)
	}

	if !strings.Contains(string(gotBody), `"image_url"`) {
		t.Error("リクエストにimage_urlブロックが含まれていない")
	}
	if !strings.Contains(string(gotBody), "https://example.com/photo.jpg") {
		t.Error("リクエストに画像URLが含まれていない")
	}
}

func TestOpenAIClient_Advise(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatResponseBody("もちろんです。\n```json\n{\"balance\":\"良好\",\"next_meal\":\"魚を\",\"swap\":\"揚げ物を焼き物に\"}\n```"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	advice, err := client.Advise(context.Background(), coach.AdviceInput{
		Scope:     "day",
		DateLabel: "2025-12-01",
		Total:     model.Aggregate{Kcal: 1800, Protein: 70, Fat: 50, Carbs: 220},
		GoalKcal:  2000,
	})
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if !advice.Valid() {
		t.Errorf("助言が不完全: %+v", advice)
	}
	if advice.Balance != "良好" {
		t.Errorf("Balance = %q", advice.Balance)
	}
}

func TestOpenAIClient_Advise_JSONなし応答はエラー(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatResponseBody("申し訳ありませんが、お答えできません。"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Advise(context.Background(), coach.AdviceInput{}); err == nil {
		t.Error("JSONを含まない応答でエラーになるべき")
	}
}

func TestOpenAIClient_非2xx応答はエラー(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limit"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.EstimateText(context.Background(), "カレー"); err == nil {
		t.Error("429応答でエラーになるべき")
	}
}

func TestOpenAIClient_choiceなし応答はエラー(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.EstimateText(context.Background(), "カレー"); err == nil {
		t.Error("choiceのない応答でエラーになるべき")
	}
}

func TestOpenAIClient_APIキー未設定はエラー(t *testing.T) {
	client := NewOpenAIClient(Config{BaseURL: "http://localhost", Model: "gpt-4o-mini"})
	if _, err := client.EstimateText(context.Background(), "カレー"); err == nil {
		t.Error("APIキー未設定でエラーになるべき")
	}
}
