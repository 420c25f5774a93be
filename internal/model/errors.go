// Package model はドメインモデルを定義する。
package model

import "fmt"

// BotError は統一エラーフォーマットを表す。
// ログに残す原因カテゴリとユーザーに返す文面を含む。
type BotError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（ログ用）
	Category string // カテゴリ: transport, estimate, validation, system
	Notice   string // ユーザー向け通知文
}

// Error はerrorインターフェースを実装する。
func (e *BotError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEstimateUnusable = "ESTIMATE_UNUSABLE"
	ErrCodeContentFetch     = "CONTENT_FETCH_FAILED"
	ErrCodeImageUpload      = "IMAGE_UPLOAD_FAILED"
	ErrCodeEstimateCall     = "ESTIMATE_CALL_FAILED"
	ErrCodeStoreWrite       = "STORE_WRITE_FAILED"
	ErrCodeStoreRead        = "STORE_READ_FAILED"
)

// NewEstimateUnusableError は推定結果が利用不能だった場合のエラーを生成する。
// 保存は行わず、ユーザーには言い換え・撮り直しを促す。
func NewEstimateUnusableError(reason string) *BotError {
	return &BotError{
		Code:     ErrCodeEstimateUnusable,
		Message:  fmt.Sprintf("推定結果を利用できません: %s", reason),
		Category: "estimate",
		Notice:   "解析に失敗しました🙏 食品名を変えるか、より鮮明な写真でもう一度お試しください。",
	}
}

// NewContentFetchError は受信画像の取得失敗エラーを生成する。
func NewContentFetchError(err error) *BotError {
	return &BotError{
		Code:     ErrCodeContentFetch,
		Message:  fmt.Sprintf("画像コンテンツの取得に失敗しました: %v", err),
		Category: "transport",
		Notice:   "画像を受け取れませんでした。もう一度送信してください。",
	}
}

// NewImageUploadError は画像アップロード失敗エラーを生成する。
func NewImageUploadError(err error) *BotError {
	return &BotError{
		Code:     ErrCodeImageUpload,
		Message:  fmt.Sprintf("画像のアップロードに失敗しました: %v", err),
		Category: "transport",
		Notice:   "画像の処理に失敗しました。しばらくしてからもう一度お試しください。",
	}
}

// NewEstimateCallError は推定APIの呼び出し失敗エラーを生成する。
func NewEstimateCallError(err error) *BotError {
	return &BotError{
		Code:     ErrCodeEstimateCall,
		Message:  fmt.Sprintf("推定APIの呼び出しに失敗しました: %v", err),
		Category: "transport",
		Notice:   "解析サービスに接続できませんでした。しばらくしてからもう一度お試しください。",
	}
}

// NewStoreWriteError は記録の保存失敗エラーを生成する。
func NewStoreWriteError(err error) *BotError {
	return &BotError{
		Code:     ErrCodeStoreWrite,
		Message:  fmt.Sprintf("記録の保存に失敗しました: %v", err),
		Category: "system",
		Notice:   "記録の保存に失敗しました。もう一度お試しください。",
	}
}

// NewStoreReadError は記録の取得失敗エラーを生成する。
func NewStoreReadError(err error) *BotError {
	return &BotError{
		Code:     ErrCodeStoreRead,
		Message:  fmt.Sprintf("記録の取得に失敗しました: %v", err),
		Category: "system",
		Notice:   "記録の取得に失敗しました。しばらくしてからもう一度お試しください。",
	}
}
