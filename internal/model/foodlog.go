// Package model はドメインモデルを定義する。
package model

import "time"

// FoodLogEntry はユーザーがある暦日に食べた1品目の記録を表す。
type FoodLogEntry struct {
	ID              string
	UserID          string
	FoodName        string  // サニタイズ済みの表示名（最大50文字・1行）
	Calories        int     // kcal。整数に丸めて保存する
	Protein         float64 // g
	Fat             float64 // g
	Carbs           float64 // g
	EatenAt         string  // YYYY-MM-DD。JST固定オフセットの暦日（サーバーのタイムゾーンではない）
	SourceMessageID string  // 元の受信メッセージID（冪等キーの一部）
	ItemIndex       int     // 同一メッセージ内の品目位置（1始まり、冪等キーの一部）
	ImageHash       string  // 画像由来の記録のみ。同日重複画像の検出に使用する
	CreatedAt       time.Time
}

// Aggregate は複数のFoodLogEntryを集計した栄養合計を表す。永続化しない派生値。
type Aggregate struct {
	Kcal    int
	Protein float64
	Fat     float64
	Carbs   float64
	Days    int // 範囲集計で実際にデータのあった日数。単日集計では0
}
