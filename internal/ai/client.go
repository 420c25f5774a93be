// Package ai はOpenAI互換APIを使った栄養推定とコーチング助言の生成を提供する。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/calobot/internal/coach"
	"github.com/hitoshi/calobot/internal/nutrition"
)

// Config はOpenAIクライアントの設定。
type Config struct {
	APIKey    string
	BaseURL   string // 例: https://api.openai.com/v1
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// OpenAIClient はchat completions APIへの薄いクライアント。
// テキスト推定・画像推定・助言生成の3用途で同じエンドポイントを使う。
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewOpenAIClient は新しいOpenAIClientを生成する。
func NewOpenAIClient(cfg Config) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &OpenAIClient{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:     strings.TrimSpace(cfg.Model),
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// contentPart はマルチモーダルメッセージの1要素。
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string または []contentPart
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// EstimateText は食べ物テキストからカロリー・PFC推定の生応答を返す。
func (c *OpenAIClient) EstimateText(ctx context.Context, query string) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: textEstimatePrompt},
		{Role: "user", Content: query},
	}
	return c.complete(ctx, messages)
}

// EstimateImage は食事画像URLからカロリー・PFC推定の生応答を返す。
// 画像はimage_urlコンテンツブロックとして渡す。
func (c *OpenAIClient) EstimateImage(ctx context.Context, imgURL string) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: imageEstimatePrompt},
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: "この食事の写真のカロリーとPFCを推定してください。"},
				{Type: "image_url", ImageURL: &imageURL{URL: imgURL}},
			},
		},
	}
	return c.complete(ctx, messages)
}

// Advise はcoach.Advisorを実装する。応答からJSONを抽出してデコードし、
// 抽出やデコードに失敗した場合はエラーを返す（フォールバックは呼び出し側）。
func (c *OpenAIClient) Advise(ctx context.Context, in coach.AdviceInput) (*coach.Advice, error) {
	raw, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: advicePrompt},
		{Role: "user", Content: buildAdviceQuery(in)},
	})
	if err != nil {
		return nil, err
	}

	jsonText, ok := nutrition.ExtractJSON(raw)
	if !ok {
		return nil, errors.New("助言応答にJSONが含まれていない")
	}
	var advice coach.Advice
	if err := json.Unmarshal([]byte(jsonText), &advice); err != nil {
		return nil, fmt.Errorf("助言応答のデコードに失敗: %w", err)
	}
	return &advice, nil
}

// complete はchat completionsを1回呼び、最初のchoiceの本文を返す。
func (c *OpenAIClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("OPENAI_API_KEYが設定されていない")
	}
	if c.baseURL == "" {
		return "", errors.New("OPENAI_BASE_URLが設定されていない")
	}

	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(bodyRaw),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completionsの呼び出しに失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("chat completionsがエラー応答",
			"status", resp.StatusCode,
			"body", truncateForLog(string(respBody), 500),
		)
		return "", fmt.Errorf("chat completionsエラー (%d)", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("chat completions応答のデコードに失敗: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completionsエラー: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completions応答にchoiceがない")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat completions応答が空")
	}
	return content, nil
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}

// buildAdviceQuery は助言生成のユーザープロンプトを組み立てる。
func buildAdviceQuery(in coach.AdviceInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "対象: %s\n", in.DateLabel)
	fmt.Fprintf(&b, "摂取合計: %dkcal P%.1fg F%.1fg C%.1fg\n",
		in.Total.Kcal, in.Total.Protein, in.Total.Fat, in.Total.Carbs)
	if in.GoalKcal > 0 {
		fmt.Fprintf(&b, "目標カロリー: %dkcal\n", in.GoalKcal)
	} else {
		b.WriteString("目標カロリー: 未設定\n")
	}
	if len(in.TopFoods) > 0 {
		fmt.Fprintf(&b, "主な食事: %s\n", strings.Join(in.TopFoods, "、"))
	}
	return b.String()
}
