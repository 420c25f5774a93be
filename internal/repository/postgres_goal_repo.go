package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/calobot/internal/model"
)

// PostgresUserGoalRepo はPostgreSQLを使用した目標カロリーリポジトリ。
type PostgresUserGoalRepo struct {
	db *sql.DB
}

// NewPostgresUserGoalRepo はPostgresUserGoalRepoを生成する。
func NewPostgresUserGoalRepo(db *sql.DB) *PostgresUserGoalRepo {
	return &PostgresUserGoalRepo{db: db}
}

// Find は指定ユーザーの目標を取得する。未設定の場合はnilを返す。
func (r *PostgresUserGoalRepo) Find(ctx context.Context, userID string) (*model.UserGoal, error) {
	goal := &model.UserGoal{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, calorie_goal, updated_at FROM user_goals WHERE user_id = $1`,
		userID,
	).Scan(&goal.UserID, &goal.CalorieGoal, &goal.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("目標の取得に失敗しました: %w", err)
	}
	return goal, nil
}

// Upsert は目標をuser_idを競合ターゲットとして書き込む。
func (r *PostgresUserGoalRepo) Upsert(ctx context.Context, goal *model.UserGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_goals (user_id, calorie_goal, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		    calorie_goal = EXCLUDED.calorie_goal,
		    updated_at   = EXCLUDED.updated_at`,
		goal.UserID, goal.CalorieGoal, goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("目標のUPSERTに失敗しました: %w", err)
	}
	return nil
}

// Delete は指定ユーザーの目標を削除する。存在しなくてもエラーにしない。
func (r *PostgresUserGoalRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_goals WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("目標の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserGoalRepository = (*PostgresUserGoalRepo)(nil)
