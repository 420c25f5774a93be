// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/calobot/internal/model"
)

// FoodLogRepository は食事記録の永続化インターフェース。
// (user_id, source_message_id, item_index)の一意タプルを競合ターゲットとする
// UPSERTと、ユーザー・日付・メッセージID・画像ハッシュによる絞り込み読み取りを提供する。
type FoodLogRepository interface {
	// Upsert は記録を書き込む。(user_id, source_message_id, item_index)が
	// 既に存在する場合はそのフィールドを置き換え、created_atは元の値を維持する。
	// 同一キーへの並行書き込みは到着順に関わらず1論理行に収束する。
	Upsert(ctx context.Context, entry *model.FoodLogEntry) error

	// ExistsByMessage は指定メッセージ由来の行が既にあるかを返す。
	// Webhook再配送の短絡判定に使用する。
	ExistsByMessage(ctx context.Context, userID, sourceMessageID string) (bool, error)

	// ExistsByImageHash は同一ユーザー・同一暦日に同じ画像内容の行があるかを返す。
	// ユーザーによる同一写真の再送検出に使用する。
	ExistsByImageHash(ctx context.Context, userID, date, imageHash string) (bool, error)

	// ListByDate は指定暦日の記録をcreated_at昇順で返す。該当なしは空スライス。
	ListByDate(ctx context.Context, userID, date string) ([]*model.FoodLogEntry, error)

	// ListByRange は[start, end]（両端含む）の記録をeaten_at昇順で返す。
	ListByRange(ctx context.Context, userID, start, end string) ([]*model.FoodLogEntry, error)

	// DeleteLatest は指定暦日の最新の記録1件を削除して返す。
	// 該当なしの場合はnilを返す。取消コマンドで使用する。
	DeleteLatest(ctx context.Context, userID, date string) (*model.FoodLogEntry, error)
}

// UserGoalRepository は目標カロリー設定の永続化インターフェース。
type UserGoalRepository interface {
	// Find は指定ユーザーの目標を取得する。未設定の場合はnilを返す。
	Find(ctx context.Context, userID string) (*model.UserGoal, error)

	// Upsert は目標をuser_idを競合ターゲットとして冪等に書き込む。
	Upsert(ctx context.Context, goal *model.UserGoal) error

	// Delete は指定ユーザーの目標を削除する。存在しなくてもエラーにしない。
	Delete(ctx context.Context, userID string) error
}

// CoachCacheRepository はコーチングメッセージキャッシュの永続化インターフェース。
type CoachCacheRepository interface {
	// Find は(user_id, cache_key)のキャッシュ行を取得する。なければnilを返す。
	Find(ctx context.Context, userID, cacheKey string) (*model.CoachCacheEntry, error)

	// Upsert はキャッシュ行を(user_id, cache_key)を競合ターゲットとして書き込む。
	Upsert(ctx context.Context, entry *model.CoachCacheEntry) error
}
