package command

import (
	"testing"
	"time"

	"github.com/hitoshi/calobot/internal/calendar"
)

// 2025-12-15 12:00 JST固定
func testRouter() *Router {
	fixed := time.Date(2025, 12, 15, 3, 0, 0, 0, time.UTC)
	return NewRouter(calendar.New(calendar.FixedClock{T: fixed}))
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
	}{
		{"目標設定", "目標 2000", Command{Kind: KindGoalSet, GoalKcal: 2000}},
		{"目標設定 コロン区切り", "目標:1800", Command{Kind: KindGoalSet, GoalKcal: 1800}},
		{"目標設定 kcal付き", "目標 2200kcal", Command{Kind: KindGoalSet, GoalKcal: 2200}},
		{"目標設定 英語", "goal 1500", Command{Kind: KindGoalSet, GoalKcal: 1500}},
		{"目標解除", "目標解除", Command{Kind: KindGoalClear}},
		{"目標解除 英語", "Goal Clear", Command{Kind: KindGoalClear}},
		{"取消", "取消", Command{Kind: KindUndo}},
		{"取り消し", "取り消し", Command{Kind: KindUndo}},
		{"undo", "undo", Command{Kind: KindUndo}},
		{"アドバイス", "アドバイス", Command{Kind: KindCoach}},
		{"coach", "coach", Command{Kind: KindCoach}},
		{
			"期間集計",
			"2025-12-01 2025-12-07",
			Command{Kind: KindRange, Start: "2025-12-01", End: "2025-12-07"},
		},
		{"今日の集計", "今日", Command{Kind: KindDay, Date: "2025-12-15"}},
		{"昨日の集計", "昨日の合計", Command{Kind: KindDay, Date: "2025-12-14"}},
		{"ISO日付の集計", "2025-12-01", Command{Kind: KindDay, Date: "2025-12-01"}},
		{"食べ物", "カレーライスと味噌汁", Command{Kind: KindFood, Query: "カレーライスと味噌汁"}},
		{"前後空白はトリム", "  ラーメン  ", Command{Kind: KindFood, Query: "ラーメン"}},
		{"空文字は空クエリの食べ物", "   ", Command{Kind: KindFood, Query: ""}},
	}

	r := testRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Route(tt.text)
			if got != tt.want {
				t.Errorf("Route(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestRoute_優先順位(t *testing.T) {
	r := testRouter()

	// 目標設定は日付や食べ物より先に判定される
	if got := r.Route("目標 2000"); got.Kind != KindGoalSet {
		t.Errorf("目標設定が%vに振り分けられた", got.Kind)
	}

	// 期間は単日より先に判定される
	got := r.Route("2025-12-01 から 2025-12-07 まで")
	if got.Kind != KindRange {
		t.Errorf("期間コマンドが%vに振り分けられた", got.Kind)
	}

	// コマンド語を含むだけの文は食べ物扱い
	if got := r.Route("コーチングについて教えて"); got.Kind != KindFood {
		t.Errorf("部分一致で%vに振り分けられた", got.Kind)
	}

	// 目標語のみ（数値なし）は食べ物扱い
	if got := r.Route("目標"); got.Kind != KindFood {
		t.Errorf("数値のない目標が%vに振り分けられた", got.Kind)
	}
}

func TestRoute_範囲外の目標値も目標設定に振り分ける(t *testing.T) {
	r := testRouter()

	// 範囲外の値も目標設定として届き、クランプは保存側で行う
	if got := r.Route("目標 50"); got.Kind != KindGoalSet || got.GoalKcal != 50 {
		t.Errorf("Route(目標 50) = %+v, want KindGoalSet GoalKcal=50", got)
	}
	if got := r.Route("goal 999999"); got.Kind != KindGoalSet || got.GoalKcal != 999999 {
		t.Errorf("Route(goal 999999) = %+v, want KindGoalSet GoalKcal=999999", got)
	}

	// intに収まらない数字列だけは食べ物クエリに落ちる
	if got := r.Route("目標 99999999999999999999"); got.Kind != KindFood {
		t.Errorf("桁あふれの目標が%vに振り分けられた", got.Kind)
	}
}
