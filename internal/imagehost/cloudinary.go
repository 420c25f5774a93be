// Package imagehost はLINEから取得した画像をCloudinaryにアップロードし、
// 推定APIへ渡せる公開URLを得るためのクライアントを提供する。
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Config はCloudinaryクライアントの設定。
type Config struct {
	CloudName    string
	UploadPreset string // unsigned uploadプリセット名
	BaseURL      string // 省略時は https://api.cloudinary.com
	Timeout      time.Duration
}

// CloudinaryClient はunsigned upload APIへの薄いクライアント。
type CloudinaryClient struct {
	cloudName    string
	uploadPreset string
	baseURL      string
	httpClient   *http.Client
}

// NewCloudinaryClient は新しいCloudinaryClientを生成する。
func NewCloudinaryClient(cfg Config) *CloudinaryClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CloudinaryClient{
		cloudName:    strings.TrimSpace(cfg.CloudName),
		uploadPreset: strings.TrimSpace(cfg.UploadPreset),
		baseURL:      baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload は画像バイト列をアップロードし、HTTPSの公開URLを返す。
func (c *CloudinaryClient) Upload(ctx context.Context, image []byte) (string, error) {
	if c.cloudName == "" {
		return "", errors.New("CLOUDINARY_CLOUD_NAMEが設定されていない")
	}
	if c.uploadPreset == "" {
		return "", errors.New("CLOUDINARY_UPLOAD_PRESETが設定されていない")
	}
	if len(image) == 0 {
		return "", errors.New("画像データが空")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "meal.jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := writer.WriteField("upload_preset", c.uploadPreset); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("画像アップロードの呼び出しに失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("画像アップロードがエラー応答",
			"status", resp.StatusCode,
			"body_size", len(respBody),
		)
		return "", fmt.Errorf("画像アップロードエラー (%d)", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("アップロード応答のデコードに失敗: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("画像アップロードエラー: %s", parsed.Error.Message)
	}
	if parsed.SecureURL == "" {
		return "", errors.New("アップロード応答にsecure_urlがない")
	}
	return parsed.SecureURL, nil
}
