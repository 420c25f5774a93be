package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/calobot/internal/model"
)

// PostgresFoodLogRepo はPostgreSQLを使用した食事記録リポジトリ。
type PostgresFoodLogRepo struct {
	db *sql.DB
}

// NewPostgresFoodLogRepo はPostgresFoodLogRepoを生成する。
func NewPostgresFoodLogRepo(db *sql.DB) *PostgresFoodLogRepo {
	return &PostgresFoodLogRepo{db: db}
}

const dateLayout = "2006-01-02"

// Upsert は記録を(user_id, source_message_id, item_index)を競合ターゲットとして書き込む。
// 既存キーの場合はフィールドを置き換え、created_atは元の値を維持する。
func (r *PostgresFoodLogRepo) Upsert(ctx context.Context, entry *model.FoodLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO food_logs (id, user_id, food_name, calories, protein, fat, carbs,
		                        eaten_at, source_message_id, item_index, image_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (user_id, source_message_id, item_index) DO UPDATE SET
		    food_name = EXCLUDED.food_name,
		    calories  = EXCLUDED.calories,
		    protein   = EXCLUDED.protein,
		    fat       = EXCLUDED.fat,
		    carbs     = EXCLUDED.carbs,
		    eaten_at  = EXCLUDED.eaten_at,
		    image_hash = EXCLUDED.image_hash`,
		entry.ID, entry.UserID, entry.FoodName, entry.Calories,
		entry.Protein, entry.Fat, entry.Carbs,
		entry.EatenAt, entry.SourceMessageID, entry.ItemIndex,
		nullString(entry.ImageHash), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("食事記録のUPSERTに失敗しました: %w", err)
	}
	return nil
}

// ExistsByMessage は指定メッセージ由来の行が既にあるかを返す。
func (r *PostgresFoodLogRepo) ExistsByMessage(ctx context.Context, userID, sourceMessageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM food_logs WHERE user_id = $1 AND source_message_id = $2
		 )`,
		userID, sourceMessageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("メッセージIDによる存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ExistsByImageHash は同一ユーザー・同一暦日に同じ画像内容の行があるかを返す。
func (r *PostgresFoodLogRepo) ExistsByImageHash(ctx context.Context, userID, date, imageHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM food_logs
		    WHERE user_id = $1 AND eaten_at = $2 AND image_hash = $3
		 )`,
		userID, date, imageHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("画像ハッシュによる存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ListByDate は指定暦日の記録をcreated_at昇順で返す。
func (r *PostgresFoodLogRepo) ListByDate(ctx context.Context, userID, date string) ([]*model.FoodLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, food_name, calories, protein, fat, carbs,
		        eaten_at, source_message_id, item_index, image_hash, created_at
		 FROM food_logs
		 WHERE user_id = $1 AND eaten_at = $2
		 ORDER BY created_at ASC, item_index ASC`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("日付による記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByRange は[start, end]（両端含む）の記録をeaten_at昇順で返す。
func (r *PostgresFoodLogRepo) ListByRange(ctx context.Context, userID, start, end string) ([]*model.FoodLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, food_name, calories, protein, fat, carbs,
		        eaten_at, source_message_id, item_index, image_hash, created_at
		 FROM food_logs
		 WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at <= $3
		 ORDER BY eaten_at ASC, created_at ASC, item_index ASC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("期間による記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteLatest は指定暦日の最新の記録1件を削除して返す。該当なしはnil。
func (r *PostgresFoodLogRepo) DeleteLatest(ctx context.Context, userID, date string) (*model.FoodLogEntry, error) {
	entry := &model.FoodLogEntry{}
	var eatenAt time.Time
	var imageHash sql.NullString

	err := r.db.QueryRowContext(ctx,
		`DELETE FROM food_logs
		 WHERE id = (
		    SELECT id FROM food_logs
		    WHERE user_id = $1 AND eaten_at = $2
		    ORDER BY created_at DESC, item_index DESC
		    LIMIT 1
		 )
		 RETURNING id, user_id, food_name, calories, protein, fat, carbs,
		           eaten_at, source_message_id, item_index, image_hash, created_at`,
		userID, date,
	).Scan(
		&entry.ID, &entry.UserID, &entry.FoodName, &entry.Calories,
		&entry.Protein, &entry.Fat, &entry.Carbs,
		&eatenAt, &entry.SourceMessageID, &entry.ItemIndex,
		&imageHash, &entry.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新記録の削除に失敗しました: %w", err)
	}

	entry.EatenAt = eatenAt.Format(dateLayout)
	entry.ImageHash = nullStringValue(imageHash)
	return entry, nil
}

// scanEntries はクエリ結果の行をFoodLogEntryに読み取る。
func scanEntries(rows *sql.Rows) ([]*model.FoodLogEntry, error) {
	var entries []*model.FoodLogEntry
	for rows.Next() {
		entry := &model.FoodLogEntry{}
		var eatenAt time.Time
		var imageHash sql.NullString

		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.FoodName, &entry.Calories,
			&entry.Protein, &entry.Fat, &entry.Carbs,
			&eatenAt, &entry.SourceMessageID, &entry.ItemIndex,
			&imageHash, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("記録行の読み取りに失敗しました: %w", err)
		}

		entry.EatenAt = eatenAt.Format(dateLayout)
		entry.ImageHash = nullStringValue(imageHash)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記録一覧の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// compile-time interface check
var _ FoodLogRepository = (*PostgresFoodLogRepo)(nil)
