package coach

import "fmt"

// フォールバック助言のしきい値。タンパク質はおおまかな下限のみ見る。
const fallbackProteinFloor = 60.0

// FallbackAdvice は生成器を使わない決定的な助言テキストを返す。
// 同じ入力には必ず同じ文面を返し、空文字列を返すことはない。
func FallbackAdvice(in AdviceInput) string {
	balance := "記録を続けていきましょう。"
	switch {
	case in.GoalKcal > 0 && in.Total.Kcal > in.GoalKcal:
		over := in.Total.Kcal - in.GoalKcal
		balance = fmt.Sprintf("目標を%dkcalオーバーしています。次の食事は軽めにしましょう。", over)
	case in.GoalKcal > 0 && in.Total.Kcal <= in.GoalKcal:
		remain := in.GoalKcal - in.Total.Kcal
		balance = fmt.Sprintf("目標まであと%dkcalです。良いペースです。", remain)
	}

	nextMeal := "野菜を一品加えてバランスを意識しましょう。"
	swap := "揚げ物を焼き物や蒸し物に置き換えると脂質を抑えられます。"
	if in.Total.Protein < fallbackProteinFloor && in.Total.Kcal > 0 {
		nextMeal = "タンパク質が不足気味です。肉・魚・卵・豆類を意識して摂りましょう。"
		swap = "間食を菓子類からヨーグルトやゆで卵に置き換えるのがおすすめです。"
	}

	return Advice{Balance: balance, NextMeal: nextMeal, Swap: swap}.Text()
}

// DayCacheKey は単日コーチングのキャッシュキーを生成する。
func DayCacheKey(date string) string {
	return "day:" + date
}

// RangeCacheKey は期間コーチングのキャッシュキーを生成する。
func RangeCacheKey(start, end string) string {
	return "range:" + start + ":" + end
}
