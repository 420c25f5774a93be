package nutrition

import "github.com/hitoshi/calobot/internal/model"

// FoldPolicy はテキスト照会の複数品目応答を1品目に畳み込むかの判定ポリシー。
// 「短い名前の品目が並ぶ応答は1品の材料分解である」という経験則は
// 精度が確立していないため、差し替え可能なポリシーとして切り出している。
type FoldPolicy interface {
	// ShouldFold は品目リストを1品目に畳み込むべきかを返す。
	ShouldFold(items []model.EstimateItem) bool
}

// ShortNameFoldPolicy は全品目の名前が短くかつ品目数が閾値以上の場合に
// 材料分解とみなして畳み込むデフォルトポリシー。
type ShortNameFoldPolicy struct {
	MaxNameRunes int // 各品目名の最大文字数
	MinItems     int // 畳み込み対象とする最小品目数
}

// DefaultFoldPolicy はデフォルト設定のShortNameFoldPolicyを返す。
func DefaultFoldPolicy() ShortNameFoldPolicy {
	return ShortNameFoldPolicy{MaxNameRunes: 12, MinItems: 3}
}

// ShouldFold はFoldPolicyを実装する。
func (p ShortNameFoldPolicy) ShouldFold(items []model.EstimateItem) bool {
	if len(items) < p.MinItems {
		return false
	}
	for _, it := range items {
		if len([]rune(it.Name)) > p.MaxNameRunes {
			return false
		}
	}
	return true
}

// NeverFoldPolicy は畳み込みを一切行わないポリシー。画像照会で使用する。
type NeverFoldPolicy struct{}

// ShouldFold は常にfalseを返す。
func (NeverFoldPolicy) ShouldFold([]model.EstimateItem) bool { return false }
