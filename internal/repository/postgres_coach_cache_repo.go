package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/calobot/internal/model"
)

// PostgresCoachCacheRepo はPostgreSQLを使用したコーチングキャッシュリポジトリ。
type PostgresCoachCacheRepo struct {
	db *sql.DB
}

// NewPostgresCoachCacheRepo はPostgresCoachCacheRepoを生成する。
func NewPostgresCoachCacheRepo(db *sql.DB) *PostgresCoachCacheRepo {
	return &PostgresCoachCacheRepo{db: db}
}

// Find は(user_id, cache_key)のキャッシュ行を取得する。なければnilを返す。
func (r *PostgresCoachCacheRepo) Find(ctx context.Context, userID, cacheKey string) (*model.CoachCacheEntry, error) {
	entry := &model.CoachCacheEntry{}
	var baseLastCreatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, cache_key, base_last_created_at, input_hash, coach_text, updated_at
		 FROM coach_cache
		 WHERE user_id = $1 AND cache_key = $2`,
		userID, cacheKey,
	).Scan(
		&entry.UserID, &entry.CacheKey, &baseLastCreatedAt,
		&entry.InputHash, &entry.CoachText, &entry.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コーチングキャッシュの取得に失敗しました: %w", err)
	}

	if baseLastCreatedAt.Valid {
		entry.BaseLastCreatedAt = &baseLastCreatedAt.Time
	}
	return entry, nil
}

// Upsert はキャッシュ行を(user_id, cache_key)を競合ターゲットとして書き込む。
func (r *PostgresCoachCacheRepo) Upsert(ctx context.Context, entry *model.CoachCacheEntry) error {
	var baseLastCreatedAt sql.NullTime
	if entry.BaseLastCreatedAt != nil {
		baseLastCreatedAt = sql.NullTime{Time: *entry.BaseLastCreatedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO coach_cache (user_id, cache_key, base_last_created_at, input_hash, coach_text, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, cache_key) DO UPDATE SET
		    base_last_created_at = EXCLUDED.base_last_created_at,
		    input_hash           = EXCLUDED.input_hash,
		    coach_text           = EXCLUDED.coach_text,
		    updated_at           = EXCLUDED.updated_at`,
		entry.UserID, entry.CacheKey, baseLastCreatedAt,
		entry.InputHash, entry.CoachText, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コーチングキャッシュのUPSERTに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CoachCacheRepository = (*PostgresCoachCacheRepo)(nil)
