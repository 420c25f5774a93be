package nutrition

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/hitoshi/calobot/internal/model"
)

// rawItem は推定応答の1品目。モデルの揺らぎに備えてフィールドをany型で受ける。
type rawItem struct {
	Name     string `json:"name"`
	FoodName string `json:"food_name"`
	Kcal     any    `json:"kcal"`
	Calories any    `json:"calories"`
	Protein  any    `json:"protein"`
	Fat      any    `json:"fat"`
	Carbs    any    `json:"carbs"`
	Carbo    any    `json:"carbohydrates"`
}

// rawPayload は推定応答の全体形。{total, items, point}を期待する。
type rawPayload struct {
	Total *rawItem  `json:"total"`
	Items []rawItem `json:"items"`
	Point string    `json:"point"`
}

// numberPattern は文字列値に混入した単位等から数値部分だけを取り出す。
var numberPattern = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)

// coerceFloat は数値であるべき値を全順序の数値として解釈する。
// 数値化できない値・欠損はNaNではなく0になり、決してpanicしない。
// 栄養値は非負のため負数も0に丸める。
func coerceFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		m := numberPattern.FindString(n)
		if m == "" {
			return 0
		}
		parsed, err := json.Number(m).Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// hasNumericField は品目に数値として解釈できるフィールドが1つでもあるかを返す。
// 「パースできたが全部ゼロ」と「数値が1つもなかった」を区別するために使う。
func (it rawItem) hasNumericField() bool {
	for _, v := range []any{it.Kcal, it.Calories, it.Protein, it.Fat, it.Carbs, it.Carbo} {
		switch n := v.(type) {
		case float64, json.Number:
			return true
		case string:
			if numberPattern.MatchString(n) {
				return true
			}
		}
	}
	return false
}

// toEstimateItem はrawItemをサニタイズ済みのEstimateItemに変換する。
func (it rawItem) toEstimateItem() model.EstimateItem {
	name := it.Name
	if name == "" {
		name = it.FoodName
	}
	kcal := coerceFloat(it.Kcal)
	if kcal == 0 {
		kcal = coerceFloat(it.Calories)
	}
	carbs := coerceFloat(it.Carbs)
	if carbs == 0 {
		carbs = coerceFloat(it.Carbo)
	}
	return model.EstimateItem{
		Name:    SanitizeName(name),
		Kcal:    kcal,
		Protein: coerceFloat(it.Protein),
		Fat:     coerceFloat(it.Fat),
		Carbs:   carbs,
	}
}

// ExtractJSON は散文に埋め込まれたJSONオブジェクトを取り出す。
// 最初の「{」から最後の「}」までを候補とし、見つからない場合はok=falseを返す。
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// sumItems は品目リストの要素ごとの合計を計算する。
func sumItems(items []model.EstimateItem) model.EstimateItem {
	var total model.EstimateItem
	for _, it := range items {
		total.Kcal += it.Kcal
		total.Protein += it.Protein
		total.Fat += it.Fat
		total.Carbs += it.Carbs
	}
	return total
}

// genericTotalName は品目名が「合計」系の総称かを判定する。
// モデルが集計行を品目リストに混ぜて返す場合の防御。
func genericTotalName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, w := range []string{"合計", "総計", "grand total", "total"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// decodePayload は生テキストからrawPayloadを取り出す。
func decodePayload(raw string) (*rawPayload, bool) {
	jsonText, ok := ExtractJSON(raw)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(jsonText))
	dec.UseNumber()
	var p rawPayload
	if err := dec.Decode(&p); err != nil {
		return nil, false
	}
	return &p, true
}

// failedResult はクエリ文字列を名前に持つゼロ値プレースホルダの失敗結果を生成する。
func failedResult(query, reason string) model.EstimateResult {
	name := SanitizeName(query)
	if name == "" {
		name = "不明"
	}
	item := model.EstimateItem{Name: name}
	return model.EstimateResult{
		Items:  []model.EstimateItem{item},
		Total:  item,
		OK:     false,
		Reason: reason,
	}
}

// ParseSingleEstimate はテキスト照会に対する推定応答を単一品目として解析する。
// {total, items}形のJSONを期待し、itemsの先頭をその品目とする。
// JSONが取り出せない・品目がない・数値フィールドが1つもない場合は、
// 照会文字列を名前に持つゼロ値プレースホルダを失敗フラグ付きで返す。
// 正当に小さい値は失敗として扱わない。
func ParseSingleEstimate(raw, query string, fold FoldPolicy) model.EstimateResult {
	p, ok := decodePayload(raw)
	if !ok {
		return failedResult(query, "応答からJSONを取り出せませんでした")
	}
	if len(p.Items) == 0 {
		return failedResult(query, "応答に品目がありません")
	}

	items := make([]model.EstimateItem, 0, len(p.Items))
	numeric := false
	for _, ri := range p.Items {
		if genericTotalName(ri.Name) || genericTotalName(ri.FoodName) {
			continue
		}
		if ri.hasNumericField() {
			numeric = true
		}
		items = append(items, ri.toEstimateItem())
	}
	if len(items) == 0 {
		return failedResult(query, "利用可能な品目がありません")
	}
	if !numeric {
		return failedResult(query, "数値フィールドがありません")
	}

	// 材料分解と判断される場合は1品目に畳み込む
	if fold != nil && fold.ShouldFold(items) {
		folded := sumItems(items)
		folded.Name = SanitizeName(query)
		if folded.Name == "" {
			folded.Name = items[0].Name
		}
		items = []model.EstimateItem{folded}
	}

	item := items[0]
	if item.Name == "" {
		item.Name = SanitizeName(query)
	}
	result := model.EstimateResult{
		Items: []model.EstimateItem{item},
		Total: item,
		Point: p.Point,
		OK:    true,
	}
	if !result.Usable() {
		result.OK = false
		result.Reason = "合計カロリーが0以下です"
	}
	return result
}

// ParseImageEstimate は画像照会に対する推定応答を複数品目として解析する。
// {total, items, point}形のJSONを期待し、名前が「合計」系の品目を除外した上で、
// totalはモデル自身のtotal欄を信用せず残った品目の算術和として再計算する。
// これにより品目と合計の数値整合が常に保証される。
func ParseImageEstimate(raw string) model.EstimateResult {
	p, ok := decodePayload(raw)
	if !ok {
		return model.EstimateResult{OK: false, Reason: "応答からJSONを取り出せませんでした"}
	}
	if len(p.Items) == 0 {
		return model.EstimateResult{OK: false, Reason: "応答に品目がありません"}
	}

	items := make([]model.EstimateItem, 0, len(p.Items))
	for _, ri := range p.Items {
		if genericTotalName(ri.Name) || genericTotalName(ri.FoodName) {
			continue
		}
		item := ri.toEstimateItem()
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return model.EstimateResult{OK: false, Reason: "利用可能な品目がありません"}
	}

	result := model.EstimateResult{
		Items: items,
		Total: sumItems(items),
		Point: p.Point,
		OK:    true,
	}
	if !result.Usable() {
		result.OK = false
		result.Reason = "合計カロリーが0以下です"
	}
	return result
}
