package bot

import (
	"fmt"
	"math"
	"strings"

	"github.com/hitoshi/calobot/internal/foodlog"
	"github.com/hitoshi/calobot/internal/model"
)

// ユーザー向けの定型メッセージ。
const (
	msgTextAck        = "🔍 カロリーを計算中です…"
	msgImageAck       = "📷 画像を解析中です…"
	msgUsageHint      = "食べた物を送るとカロリーを記録します。\n例: 「カレーライス」、食事の写真、「今日」、「目標 2000」"
	msgRateLimited    = "推定の回数制限に達しました。しばらくしてからもう一度お試しください。"
	msgDuplicateImage = "同じ画像が本日すでに記録されています（再計算はしません）"
	msgGoalCleared    = "目標カロリーを解除しました。"
	msgNothingToUndo  = "今日はまだ取り消せる記録がありません。"
)

// formatLine は1品目の表示行を組み立てる。
func formatLine(name string, kcal int, protein, fat, carbs float64) string {
	return fmt.Sprintf("%s\n🔥 %dkcal（P%.1fg / F%.1fg / C%.1fg）", name, kcal, protein, fat, carbs)
}

// formatEstimateReport は推定結果の通知テキストを組み立てる。
// 1品目なら品目のみ、複数品目なら各品目と合計を並べる。
func formatEstimateReport(result model.EstimateResult) string {
	var b strings.Builder
	b.WriteString("✅ 記録しました\n")

	if len(result.Items) == 1 {
		item := result.Items[0]
		b.WriteString(formatLine(item.Name, roundKcal(item.Kcal), item.Protein, item.Fat, item.Carbs))
	} else {
		for _, item := range result.Items {
			fmt.Fprintf(&b, "・%s %dkcal\n", item.Name, roundKcal(item.Kcal))
		}
		b.WriteString(formatLine("合計", roundKcal(result.Total.Kcal), result.Total.Protein, result.Total.Fat, result.Total.Carbs))
	}

	if result.Point != "" {
		b.WriteString("\n💡 " + result.Point)
	}
	return b.String()
}

// formatGoalSet は目標設定の確認メッセージを組み立てる。
// クランプされた場合はその旨を添える。
func formatGoalSet(requested, clamped int) string {
	if requested != clamped {
		return fmt.Sprintf("目標カロリーを %dkcal に設定しました（指定の%dkcalは許容範囲外のため調整しました）", clamped, requested)
	}
	return fmt.Sprintf("目標カロリーを %dkcal に設定しました。", clamped)
}

// formatUndone は取消の確認メッセージを組み立てる。
func formatUndone(entry *model.FoodLogEntry) string {
	return fmt.Sprintf("🗑 取り消しました: %s（%dkcal）", entry.FoodName, entry.Calories)
}

// formatNoRecords は単日の記録なしメッセージを組み立てる。
func formatNoRecords(date string) string {
	return fmt.Sprintf("%s の記録はありません。", date)
}

// formatNoRecordsRange は期間の記録なしメッセージを組み立てる。
func formatNoRecordsRange(start, end string) string {
	return fmt.Sprintf("%s〜%s の記録はありません。", start, end)
}

// formatDayReport は単日集計のレポートを組み立てる。
// 目標が設定されていれば残りまたは超過を添える。
func formatDayReport(date string, day *foodlog.DayResult, goalKcal int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s の記録（%d件）\n", date, len(day.Entries))
	for _, e := range day.Entries {
		fmt.Fprintf(&b, "・%s %dkcal\n", e.FoodName, e.Calories)
	}
	b.WriteString(formatLine("合計", day.Total.Kcal, day.Total.Protein, day.Total.Fat, day.Total.Carbs))

	if goalKcal > 0 {
		if day.Total.Kcal > goalKcal {
			fmt.Fprintf(&b, "\n🎯 目標 %dkcal を %dkcal 超過", goalKcal, day.Total.Kcal-goalKcal)
		} else {
			fmt.Fprintf(&b, "\n🎯 目標 %dkcal まであと %dkcal", goalKcal, goalKcal-day.Total.Kcal)
		}
	}
	return b.String()
}

// formatRangeReport は期間集計のレポートを組み立てる。
// 平均は記録のあった日数で割った値であることを明記する。
func formatRangeReport(start, end string, rng *foodlog.RangeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s〜%s の記録\n", start, end)
	fmt.Fprintf(&b, "記録日数: %d日 / %d件\n", rng.DayCount, len(rng.Entries))
	b.WriteString(formatLine("合計", rng.Total.Kcal, rng.Total.Protein, rng.Total.Fat, rng.Total.Carbs))
	b.WriteString("\n")
	b.WriteString(formatLine("1日平均", rng.Average.Kcal, rng.Average.Protein, rng.Average.Fat, rng.Average.Carbs))
	return b.String()
}

func roundKcal(f float64) int {
	if f < 0 {
		return 0
	}
	return int(math.Round(f))
}
