// Package coach は集計結果と目標から助言メッセージを生成し、
// 基礎データが変わらない限りキャッシュして推定APIの呼び出しを節約する。
package coach

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/calobot/internal/model"
	"github.com/hitoshi/calobot/internal/repository"
)

// AdviceInput は助言生成に影響する意味上の入力。
// ダイジェストは丸め済みの値から計算し、浮動小数の精度ノイズで
// キャッシュミスが起きないようにする。
type AdviceInput struct {
	Scope     string // "day" または "range"
	DateLabel string // 例: "2025-12-01" / "2025-12-01〜2025-12-07"
	Total     model.Aggregate
	GoalKcal  int // 0 = 目標未設定
	TopFoods  []string
}

// Advice は外部生成器の構造化応答。
// 3フィールドすべてが非空の場合のみ有効とみなす。
type Advice struct {
	Balance  string `json:"balance"`   // 栄養バランスへの一言
	NextMeal string `json:"next_meal"` // 次の食事の提案
	Swap     string `json:"swap"`      // 置き換えの提案
}

// Valid は応答が必須フィールドをすべて備えているかを返す。
func (a Advice) Valid() bool {
	return strings.TrimSpace(a.Balance) != "" &&
		strings.TrimSpace(a.NextMeal) != "" &&
		strings.TrimSpace(a.Swap) != ""
}

// Text は助言を1つの送信テキストに組み立てる。
func (a Advice) Text() string {
	return fmt.Sprintf("💬 %s\n🍽 次の食事: %s\n🔄 置き換え: %s", a.Balance, a.NextMeal, a.Swap)
}

// Advisor は外部の助言生成器。失敗やバリデーション不合格は
// CacheService側の決定的フォールバックで吸収される。
type Advisor interface {
	Advise(ctx context.Context, in AdviceInput) (*Advice, error)
}

// CacheService はコーチングメッセージのキャッシュ付き取得を提供する。
//
// (user, cacheKey)ごとの状態遷移: absent → fresh → stale → 再生成 → fresh。
// 鮮度はTTLではなくウォーターマーク（基礎データの最新created_at）と
// 入力ダイジェストの完全一致で判定する。正しさは経過時間ではなく
// データの変化に依存するため。
type CacheService struct {
	cacheRepo repository.CoachCacheRepository
	advisor   Advisor
	clock     func() time.Time
}

// NewCacheService はCacheServiceの新しいインスタンスを生成する。
func NewCacheService(cacheRepo repository.CoachCacheRepository, advisor Advisor) *CacheService {
	return &CacheService{
		cacheRepo: cacheRepo,
		advisor:   advisor,
		clock:     time.Now,
	}
}

// Watermark は集計対象エントリの最新created_atを返す。対象なしはnil。
func Watermark(entries []*model.FoodLogEntry) *time.Time {
	var max *time.Time
	for _, e := range entries {
		t := e.CreatedAt
		if max == nil || t.After(*max) {
			max = &t
		}
	}
	return max
}

// InputDigest は助言生成に影響する入力の決定的ダイジェストを計算する。
// カロリーは整数、グラムは小数1桁に丸めた値を用いる。
func InputDigest(in AdviceInput) string {
	data := fmt.Sprintf("%s|%s|%d|%.1f|%.1f|%.1f|%d|%s",
		in.Scope, in.DateLabel,
		in.Total.Kcal, in.Total.Protein, in.Total.Fat, in.Total.Carbs,
		in.GoalKcal, strings.Join(in.TopFoods, ","),
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Get はキャッシュ済みの助言テキストを返すか、必要なら再生成する。
//
//  1. 現在のエントリと入力からウォーターマークとダイジェストを計算する。
//  2. (user, cacheKey)の保存行を照会する。
//  3. ウォーターマークとダイジェストが両方とも完全一致すれば保存テキストを返す（生成呼び出しなし）。
//  4. 一致しなければ外部生成器を呼び、応答の検証に失敗するか通信に失敗した場合は
//     決定的フォールバックにする。フォールバックは決して失敗せず空にもならない。
//  5. 新しいテキストをウォーターマーク・ダイジェストと共にUPSERTして返す。
//
// 内部の永続化エラーはログに残して吸収し、この関数自体は必ずテキストを返す。
func (s *CacheService) Get(
	ctx context.Context,
	userID, cacheKey string,
	entries []*model.FoodLogEntry,
	in AdviceInput,
) (text string, cached bool) {
	watermark := Watermark(entries)
	digest := InputDigest(in)

	stored, err := s.cacheRepo.Find(ctx, userID, cacheKey)
	if err != nil {
		slog.Error("コーチングキャッシュの照会でエラー",
			"user_id", userID, "cache_key", cacheKey, "error", err)
		stored = nil
	}

	if stored != nil && watermarkEqual(stored.BaseLastCreatedAt, watermark) && stored.InputHash == digest {
		return stored.CoachText, true
	}

	text = s.generate(ctx, in)

	entry := &model.CoachCacheEntry{
		UserID:            userID,
		CacheKey:          cacheKey,
		BaseLastCreatedAt: watermark,
		InputHash:         digest,
		CoachText:         text,
		UpdatedAt:         s.clock(),
	}
	if err := s.cacheRepo.Upsert(ctx, entry); err != nil {
		slog.Error("コーチングキャッシュの保存でエラー",
			"user_id", userID, "cache_key", cacheKey, "error", err)
	}

	return text, false
}

// generate は外部生成器を呼び、失敗時は決定的フォールバックに切り替える。
func (s *CacheService) generate(ctx context.Context, in AdviceInput) string {
	advice, err := s.advisor.Advise(ctx, in)
	if err != nil {
		slog.Warn("助言生成の呼び出しに失敗、フォールバックを使用", "error", err)
		return FallbackAdvice(in)
	}
	if advice == nil || !advice.Valid() {
		slog.Warn("助言生成の応答が不正、フォールバックを使用")
		return FallbackAdvice(in)
	}
	return advice.Text()
}

// watermarkEqual は2つのウォーターマークの完全一致を判定する。
func watermarkEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
