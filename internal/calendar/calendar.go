// Package calendar はJST固定オフセットの暦日計算と日付コマンドの解析を提供する。
//
// 暦日はタイムゾーンデータベースを参照しない固定UTC+9オフセットで求める。
// ホストプロセスのタイムゾーン設定や夏時間規則に依存しない。
package calendar

import (
	"regexp"
	"strings"
	"time"
)

// Clock は現在時刻の取得を抽象化する。テストでは固定時刻を注入する。
type Clock interface {
	Now() time.Time
}

// SystemClock は実時刻を返すClock実装。
type SystemClock struct{}

// Now は現在時刻を返す。
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock は常に同じ時刻を返すClock実装。テスト用。
type FixedClock struct {
	T time.Time
}

// Now は固定された時刻を返す。
func (c FixedClock) Now() time.Time { return c.T }

// JST は固定UTC+9オフセット。tzdataに依存しない。
var JST = time.FixedZone("JST", 9*60*60)

const dateLayout = "2006-01-02"

// Calendar はJST暦日のユーティリティ。
type Calendar struct {
	clock Clock
}

// New はCalendarの新しいインスタンスを生成する。
func New(clock Clock) *Calendar {
	return &Calendar{clock: clock}
}

// Today は今日のJST暦日をYYYY-MM-DD形式で返す。
func (c *Calendar) Today() string {
	return c.Shift(0)
}

// Shift は今日からdays日ずらしたJST暦日をYYYY-MM-DD形式で返す。
func (c *Calendar) Shift(days int) string {
	return c.clock.Now().In(JST).AddDate(0, 0, days).Format(dateLayout)
}

// isoDatePattern は本文中のYYYY-MM-DD形状の部分文字列にマッチする。
// 実在する日付かどうかはValidDateで別途検証する。
var isoDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ValidDate は文字列が実在するYYYY-MM-DD日付かを判定する。
// 13月や2月30日のような形だけ正しい文字列は拒否する。
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// 相対日付エイリアス。末尾の「合計」キーワードはParseSingleDateCommand側で除去する。
var dayAliases = map[string]int{
	"今日":   0,
	"今日の":  0,
	"本日":   0,
	"本日の":  0,
	"昨日":   -1,
	"昨日の":  -1,
	"一昨日":  -2,
	"一昨日の": -2,
}

// ParseSingleDateCommand は単一日付コマンドを解析する。
// 今日/昨日/一昨日（それぞれ末尾に「合計」を伴ってよい）と、
// 本文中に埋め込まれたYYYY-MM-DDを認識する。
// 認識できない入力ではok=falseを返し、決してpanicしない。
func (c *Calendar) ParseSingleDateCommand(text string) (date string, ok bool) {
	trimmed := strings.TrimSpace(text)

	base := strings.TrimSpace(strings.TrimSuffix(trimmed, "合計"))
	if shift, found := dayAliases[base]; found {
		return c.Shift(shift), true
	}

	if m := isoDatePattern.FindString(trimmed); m != "" && ValidDate(m) {
		return m, true
	}

	return "", false
}

// ParseRangeCommand は期間コマンドを解析する。
// 1メッセージ中の2つのYYYY-MM-DD形状の部分文字列を認識し、
// 1つ目が2つ目より後の場合は入れ替えて常に非減少の範囲を返す。
// どちらかが実在しない日付の場合はok=falseを返す。
func (c *Calendar) ParseRangeCommand(text string) (start, end string, ok bool) {
	matches := isoDatePattern.FindAllString(text, -1)
	if len(matches) < 2 {
		return "", "", false
	}
	if !ValidDate(matches[0]) || !ValidDate(matches[1]) {
		return "", "", false
	}

	start, end = matches[0], matches[1]
	if start > end {
		start, end = end, start
	}
	return start, end, true
}
