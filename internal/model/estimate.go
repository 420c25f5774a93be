// Package model はドメインモデルを定義する。
package model

// EstimateItem は推定モデルの応答から得た1品目の栄養値を表す。
type EstimateItem struct {
	Name    string
	Kcal    float64
	Protein float64
	Fat     float64
	Carbs   float64
}

// EstimateResult は推定応答のパース結果を表すタグ付き結果型。
// 呼び出し側はOKで分岐し、OK=falseの結果を保存・表示してはならない。
type EstimateResult struct {
	Items  []EstimateItem
	Total  EstimateItem // Itemsの合計。モデル自身のtotal欄は信用しない
	Point  string       // モデルが付けた一言コメント（任意）
	OK     bool
	Reason string // OK=falseの場合の失敗理由
}

// Usable はこの結果が栄養推定として利用可能かを返す。
// 合計カロリーが有限かつ0より大きい場合のみ利用可能とみなす。
func (r EstimateResult) Usable() bool {
	return r.OK && r.Total.Kcal > 0
}
