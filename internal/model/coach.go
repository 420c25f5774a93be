// Package model はドメインモデルを定義する。
package model

import "time"

// CoachCacheEntry はメモ化されたコーチングメッセージを表す。(userId, cacheKey)ごとに1件。
// BaseLastCreatedAtとInputHashの両方が再計算値と完全一致する場合のみ再利用できる。
// 対象スコープに新しい記録が1件でも追加・変更されればキャッシュは無効になる。
type CoachCacheEntry struct {
	UserID            string
	CacheKey          string     // クエリのスコープを識別するキー（例: day:2025-12-01）
	BaseLastCreatedAt *time.Time // 集計対象の最新FoodLogEntryのCreatedAt。対象なしの場合はnil
	InputHash         string     // 生成文に影響した入力（丸め済み合計・目標・上位食品）のダイジェスト
	CoachText         string
	UpdatedAt         time.Time
}
