package foodlog

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/hitoshi/calobot/internal/model"
)

// --- テスト用モック ---

// mockFoodLogRepo はテスト用のFoodLogRepositoryモック。
// (user_id, source_message_id, item_index)キーで保存し、本物と同じUPSERT意味論を持つ。
type mockFoodLogRepo struct {
	rows        map[string]*model.FoodLogEntry // 一意キー -> 行
	upsertCalls int
}

func newMockFoodLogRepo() *mockFoodLogRepo {
	return &mockFoodLogRepo{rows: make(map[string]*model.FoodLogEntry)}
}

func upsertKey(userID, messageID string, itemIndex int) string {
	return fmt.Sprintf("%s|%s|%d", userID, messageID, itemIndex)
}

func (m *mockFoodLogRepo) Upsert(_ context.Context, entry *model.FoodLogEntry) error {
	m.upsertCalls++
	key := upsertKey(entry.UserID, entry.SourceMessageID, entry.ItemIndex)
	if existing, ok := m.rows[key]; ok {
		// 既存キーはフィールドを置き換え、IDとcreated_atは維持する
		updated := *entry
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		m.rows[key] = &updated
		return nil
	}
	clone := *entry
	m.rows[key] = &clone
	return nil
}

func (m *mockFoodLogRepo) ExistsByMessage(_ context.Context, userID, sourceMessageID string) (bool, error) {
	for _, e := range m.rows {
		if e.UserID == userID && e.SourceMessageID == sourceMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFoodLogRepo) ExistsByImageHash(_ context.Context, userID, date, imageHash string) (bool, error) {
	for _, e := range m.rows {
		if e.UserID == userID && e.EatenAt == date && e.ImageHash != "" && e.ImageHash == imageHash {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFoodLogRepo) ListByDate(_ context.Context, userID, date string) ([]*model.FoodLogEntry, error) {
	var out []*model.FoodLogEntry
	for _, e := range m.rows {
		if e.UserID == userID && e.EatenAt == date {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *mockFoodLogRepo) ListByRange(_ context.Context, userID, start, end string) ([]*model.FoodLogEntry, error) {
	var out []*model.FoodLogEntry
	for _, e := range m.rows {
		if e.UserID == userID && e.EatenAt >= start && e.EatenAt <= end {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *mockFoodLogRepo) DeleteLatest(_ context.Context, userID, date string) (*model.FoodLogEntry, error) {
	var latest *model.FoodLogEntry
	var latestKey string
	for k, e := range m.rows {
		if e.UserID != userID || e.EatenAt != date {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) ||
			(e.CreatedAt.Equal(latest.CreatedAt) && e.ItemIndex > latest.ItemIndex) {
			latest = e
			latestKey = k
		}
	}
	if latest == nil {
		return nil, nil
	}
	delete(m.rows, latestKey)
	return latest, nil
}

func sortEntries(entries []*model.FoodLogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EatenAt != entries[j].EatenAt {
			return entries[i].EatenAt < entries[j].EatenAt
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ItemIndex < entries[j].ItemIndex
	})
}

// --- テスト本体 ---

func TestUpsertItems_IdempotentUpsert(t *testing.T) {
	repo := newMockFoodLogRepo()
	svc := NewDedupService(repo)
	ctx := context.Background()
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	first := []model.EstimateItem{{Name: "からあげ", Kcal: 350, Protein: 20, Fat: 18, Carbs: 25}}
	if _, err := svc.UpsertItems(ctx, "U1", "msg-1", "2025-12-01", "", first, now); err != nil {
		t.Fatalf("1回目のUpsertItemsでエラー: %v", err)
	}

	// 同一キーで値を変えて再書き込み（Webhook再配送を模倣）
	second := []model.EstimateItem{{Name: "からあげ（修正）", Kcal: 400, Protein: 22, Fat: 20, Carbs: 28}}
	if _, err := svc.UpsertItems(ctx, "U1", "msg-1", "2025-12-01", "", second, now.Add(time.Minute)); err != nil {
		t.Fatalf("2回目のUpsertItemsでエラー: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("保存行数 = %d, want 1（同一キーは1行に収束）", len(repo.rows))
	}
	row := repo.rows[upsertKey("U1", "msg-1", 1)]
	if row == nil {
		t.Fatal("期待したキーの行が見つからない")
	}
	if row.FoodName != "からあげ（修正）" || row.Calories != 400 {
		t.Errorf("2回目の書き込み値で上書きされるべき: %+v", row)
	}
}

func TestUpsertItems_MultipleItemsGetSequentialIndexes(t *testing.T) {
	repo := newMockFoodLogRepo()
	svc := NewDedupService(repo)
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	items := []model.EstimateItem{
		{Name: "ごはん", Kcal: 250},
		{Name: "焼き魚", Kcal: 180},
		{Name: "味噌汁", Kcal: 40},
	}
	stored, err := svc.UpsertItems(context.Background(), "U1", "msg-img", "2025-12-01", "hash-a", items, now)
	if err != nil {
		t.Fatalf("UpsertItemsでエラー: %v", err)
	}
	if stored != 3 {
		t.Errorf("stored = %d, want 3", stored)
	}

	for i := 1; i <= 3; i++ {
		row := repo.rows[upsertKey("U1", "msg-img", i)]
		if row == nil {
			t.Fatalf("item_index=%dの行が見つからない", i)
		}
		if row.ImageHash != "hash-a" {
			t.Errorf("item_index=%dのImageHash = %q, want %q", i, row.ImageHash, "hash-a")
		}
	}
}

func TestUpsertItems_RoundsCalories(t *testing.T) {
	repo := newMockFoodLogRepo()
	svc := NewDedupService(repo)
	now := time.Now()

	items := []model.EstimateItem{{Name: "サラダ", Kcal: 123.6, Protein: 2.34}}
	if _, err := svc.UpsertItems(context.Background(), "U1", "m", "2025-12-01", "", items, now); err != nil {
		t.Fatalf("UpsertItemsでエラー: %v", err)
	}

	row := repo.rows[upsertKey("U1", "m", 1)]
	if row.Calories != 124 {
		t.Errorf("Calories = %d, want 124（四捨五入）", row.Calories)
	}
	if row.Protein != 2.34 {
		t.Errorf("Protein = %v, want 2.34（グラムは丸めずに保持）", row.Protein)
	}
}

func TestHasEntryForMessage(t *testing.T) {
	repo := newMockFoodLogRepo()
	svc := NewDedupService(repo)
	ctx := context.Background()
	now := time.Now()

	got, err := svc.HasEntryForMessage(ctx, "U1", "msg-1")
	if err != nil || got {
		t.Fatalf("未保存のメッセージ: got %v, %v", got, err)
	}

	items := []model.EstimateItem{{Name: "からあげ", Kcal: 350}}
	if _, err := svc.UpsertItems(ctx, "U1", "msg-1", "2025-12-01", "", items, now); err != nil {
		t.Fatal(err)
	}

	got, err = svc.HasEntryForMessage(ctx, "U1", "msg-1")
	if err != nil || !got {
		t.Errorf("保存済みメッセージ: got %v, %v, want true", got, err)
	}

	// 別ユーザーの同一メッセージIDは別キー
	got, _ = svc.HasEntryForMessage(ctx, "U2", "msg-1")
	if got {
		t.Error("別ユーザーの行で存在判定されている")
	}
}

func TestHasImageHashToday_DifferentMessageSameBytes(t *testing.T) {
	repo := newMockFoodLogRepo()
	svc := NewDedupService(repo)
	ctx := context.Background()
	now := time.Now()

	imageData := []byte("same image bytes")
	hash := ImageHash(imageData)

	items := []model.EstimateItem{{Name: "定食", Kcal: 700}}
	if _, err := svc.UpsertItems(ctx, "U1", "msg-1", "2025-12-01", hash, items, now); err != nil {
		t.Fatal(err)
	}

	// 同じバイト列を別メッセージIDで再送 → 同日重複として検出される
	got, err := svc.HasImageHashToday(ctx, "U1", "2025-12-01", ImageHash(imageData))
	if err != nil || !got {
		t.Errorf("同日の同一画像: got %v, %v, want true", got, err)
	}

	// 日付が違えば重複ではない
	got, _ = svc.HasImageHashToday(ctx, "U1", "2025-12-02", hash)
	if got {
		t.Error("翌日の同一画像が重複扱いされている")
	}

	// 内容が違えば重複ではない
	got, _ = svc.HasImageHashToday(ctx, "U1", "2025-12-01", ImageHash([]byte("other bytes")))
	if got {
		t.Error("異なる画像内容が重複扱いされている")
	}
}

func TestImageHash_Deterministic(t *testing.T) {
	a := ImageHash([]byte("abc"))
	b := ImageHash([]byte("abc"))
	c := ImageHash([]byte("abd"))
	if a != b {
		t.Error("同一バイト列のハッシュが一致しない")
	}
	if a == c {
		t.Error("異なるバイト列のハッシュが衝突している")
	}
	if len(a) != 64 {
		t.Errorf("SHA-256の16進表現は64文字: got %d", len(a))
	}
}
