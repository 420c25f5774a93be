// Package nutrition は推定モデルの応答を構造化された栄養記録に変換する。
//
// モデルの応答は整形されたJSON、散文に埋め込まれたJSON、利用不能なノイズの
// いずれでもありうる。パーサーは3パターンすべてを防御的に処理し、
// 利用可能な結果のみをOK付きで返す。
package nutrition

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// 食品名に含まれていた場合にそれ以降を切り捨てるマーカー語。
// モデルが名前欄にラベルや集計行の文言を混ぜてくる場合の防御。
var nameMarkers = []string{
	"カロリー", "タンパク質", "たんぱく質", "脂質", "炭水化物", "合計", "総計", "推定結果",
	"calories", "protein", "fat", "carbohydrate", "total", "estimated result",
}

// enumPrefixPattern は行頭の丸数字・数字列＋区切り・箇条書き記号にマッチする。
var enumPrefixPattern = regexp.MustCompile(`^(?:[①-⑳]|[0-9０-９]+[.)．）、:：]|[・\-*•▪◦])\s*`)

// maxNameRunes は食品名の最大文字数。
const maxNameRunes = 50

// stripPolicy は全タグを除去するbluemondayポリシー。
// モデルの応答にマークアップが混入した場合の防御。
var stripPolicy = bluemonday.StrictPolicy()

// SanitizeName は生の名前文字列を1行の表示名に整形する。
// 処理内容: HTMLタグ除去 → 最初の改行以降を破棄 → マーカー語以降を切り捨て →
// 行頭の列挙記号・箇条書き記号を除去 → トリム → 50文字で打ち切り。
// サニタイズ済みの文字列に再適用しても結果は変わらない（冪等）。
// タグ除去で実体参照化された文字（&lt;など）は復元しない。復元すると
// 再適用時にタグとして再解釈され、結果が変わってしまう。
// 整形後に空になった場合は空文字列を返し、呼び出し側は名前なしとして扱う。
func SanitizeName(raw string) string {
	s := stripPolicy.Sanitize(raw)

	// 最初の改行より前だけを使う
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}

	// 最初に現れたマーカー語以降を切り捨てる（英語は大文字小文字を無視）。
	// 検索はバイト長を変えないASCII小文字化の上で行う。ToLowerは
	// 小文字化でバイト長が変わる文字（U+0130など）で位置がずれる。
	folded := asciiLower(s)
	cut := len(s)
	for _, marker := range nameMarkers {
		if i := strings.Index(folded, marker); i >= 0 && i < cut {
			cut = i
		}
	}
	s = s[:cut]

	// 行頭の列挙記号を変化がなくなるまで除去する
	for {
		next := enumPrefixPattern.ReplaceAllString(strings.TrimSpace(s), "")
		if next == s {
			break
		}
		s = next
	}

	if runes := []rune(s); len(runes) > maxNameRunes {
		s = string(runes[:maxNameRunes])
	}

	return strings.TrimSpace(s)
}

// asciiLower はASCII英字だけを小文字化する。
// 非ASCIIバイトに触れないため、戻り値の検索位置を元の文字列にそのまま使える。
func asciiLower(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
