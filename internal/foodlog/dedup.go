// Package foodlog は食事記録の冪等な保存と集計機能を提供する。
package foodlog

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/calobot/internal/model"
	"github.com/hitoshi/calobot/internal/repository"
)

// DedupService は受信イベントの重複判定と冪等なUPSERT処理を提供する。
//
// 重複には性質の異なる2種類があり、キーを使い分ける:
//   - Webhook再配送（at-least-once配送の自動リトライ）→ メッセージIDで判定
//   - ユーザーによる同一写真の再送（人為的な重複）→ 画像内容ハッシュで判定
type DedupService struct {
	repo repository.FoodLogRepository
}

// NewDedupService はDedupServiceの新しいインスタンスを生成する。
func NewDedupService(repo repository.FoodLogRepository) *DedupService {
	return &DedupService{repo: repo}
}

// ImageHash は画像バイト列のSHA-256ハッシュを16進文字列で返す。
func ImageHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// HasEntryForMessage は指定メッセージ由来の行が既に保存済みかを返す。
// trueの場合、呼び出し側は再配送として通知も保存も行わない。
func (s *DedupService) HasEntryForMessage(ctx context.Context, userID, sourceMessageID string) (bool, error) {
	return s.repo.ExistsByMessage(ctx, userID, sourceMessageID)
}

// HasImageHashToday は同一ユーザー・同一暦日に同じ画像内容の行があるかを返す。
// trueの場合、呼び出し側は推定呼び出しを抑止し「重複のため再計算しない」旨を通知する。
func (s *DedupService) HasImageHashToday(ctx context.Context, userID, date, imageHash string) (bool, error) {
	return s.repo.ExistsByImageHash(ctx, userID, date, imageHash)
}

// UpsertItems はパース済みの品目リストを(userId, sourceMessageId, itemIndex)を
// キーとして冪等に保存する。itemIndexは1始まり。周囲のリクエストが何回
// リトライされても論理(メッセージ, 品目)対ごとに保存される行は最大1つになる。
// 戻り値は保存した品目数。
func (s *DedupService) UpsertItems(
	ctx context.Context,
	userID, sourceMessageID, date, imageHash string,
	items []model.EstimateItem,
	now time.Time,
) (int, error) {
	stored := 0
	for i, item := range items {
		entry := &model.FoodLogEntry{
			ID:              uuid.New().String(),
			UserID:          userID,
			FoodName:        item.Name,
			Calories:        int(math.Round(item.Kcal)),
			Protein:         item.Protein,
			Fat:             item.Fat,
			Carbs:           item.Carbs,
			EatenAt:         date,
			SourceMessageID: sourceMessageID,
			ItemIndex:       i + 1,
			ImageHash:       imageHash,
			CreatedAt:       now,
		}
		if err := s.repo.Upsert(ctx, entry); err != nil {
			slog.Error("食事記録のUPSERTでエラー",
				"user_id", userID,
				"source_message_id", sourceMessageID,
				"item_index", i+1,
				"error", err,
			)
			return stored, fmt.Errorf("食事記録の保存に失敗: %w", err)
		}
		stored++
	}

	slog.Info("食事記録UPSERT完了",
		"user_id", userID,
		"source_message_id", sourceMessageID,
		"stored", stored,
	)
	return stored, nil
}
