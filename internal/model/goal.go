// Package model はドメインモデルを定義する。
package model

import "time"

// 目標カロリーの許容範囲。範囲外の指定はこの範囲にクランプする。
const (
	GoalKcalMin = 200
	GoalKcalMax = 10000
)

// UserGoal はユーザーの目標カロリー設定を表す。1ユーザーにつき最大1件。
// 「目標設定」コマンドで作成・上書きされ、「目標解除」コマンドで削除される。
// 未設定の場合は目標を意識したメッセージは生成されない。
type UserGoal struct {
	UserID      string
	CalorieGoal int
	UpdatedAt   time.Time
}

// ClampGoalKcal は目標カロリーを許容範囲[200, 10000]にクランプする。
func ClampGoalKcal(kcal int) int {
	if kcal < GoalKcalMin {
		return GoalKcalMin
	}
	if kcal > GoalKcalMax {
		return GoalKcalMax
	}
	return kcal
}
