// Package command はユーザーのテキストメッセージをボットのコマンドに振り分ける。
// どのパターンにも一致しないテキストは食べ物の記録クエリとして扱う。
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hitoshi/calobot/internal/calendar"
)

// Kind はコマンドの種別。
type Kind int

const (
	KindFood Kind = iota // 食べ物の記録（デフォルト）
	KindGoalSet
	KindGoalClear
	KindUndo
	KindCoach
	KindRange
	KindDay
)

// Command は振り分け結果。Kindに応じたフィールドだけが意味を持つ。
type Command struct {
	Kind     Kind
	GoalKcal int    // KindGoalSet
	Date     string // KindDay
	Start    string // KindRange
	End      string // KindRange
	Query    string // KindFood
}

var (
	// 桁数はここで制限しない。範囲外の値は保存時にクランプされる。
	goalSetPattern = regexp.MustCompile(`(?i)^(?:目標|goal)\s*[:：]?\s*(\d+)\s*(?:kcal|キロカロリー)?$`)

	goalClearWords = []string{"目標解除", "目標リセット", "目標クリア", "goal clear", "goal reset"}
	undoWords      = []string{"取消", "取り消し", "とりけし", "undo"}
	coachWords     = []string{"アドバイス", "コーチ", "advice", "coach"}
)

// matcher はテキストを1つのコマンドとして解釈できるか試みる。
type matcher func(trimmed, lowered string) (Command, bool)

// Router はテキストをコマンドに振り分ける。
// 判定はマッチャの順序付きテーブルを先頭から1回走査し、最初の一致が勝つ。
// 日付・期間の解釈はCalendarに委譲する。
type Router struct {
	table []matcher
}

// NewRouter は新しいRouterを生成する。
//
// テーブルは特異性の高い順に並べる: 目標設定 → 目標解除 → 取消 →
// アドバイス → 期間集計 → 単日集計。順序を変えると
// 「目標 2000」が食べ物として記録されるような取りこぼしが起きる。
// コマンドを追加するときはテーブルに行を足す。
func NewRouter(cal *calendar.Calendar) *Router {
	return &Router{
		table: []matcher{
			matchGoalSet,
			wordMatcher(goalClearWords, KindGoalClear),
			wordMatcher(undoWords, KindUndo),
			wordMatcher(coachWords, KindCoach),
			rangeMatcher(cal),
			dayMatcher(cal),
		},
	}
}

// Route はテキストを1つのコマンドに解決する。
// どのマッチャにも一致しないテキストは食べ物クエリになる。
func (r *Router) Route(text string) Command {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{Kind: KindFood, Query: ""}
	}

	lowered := strings.ToLower(trimmed)
	for _, m := range r.table {
		if cmd, ok := m(trimmed, lowered); ok {
			return cmd
		}
	}

	return Command{Kind: KindFood, Query: trimmed}
}

// matchGoalSet は目標設定コマンドを解釈する。
// 数値の範囲チェックはしない。int に収まらないほど長い数字列だけ不一致にする。
func matchGoalSet(trimmed, _ string) (Command, bool) {
	m := goalSetPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Command{}, false
	}
	kcal, err := strconv.Atoi(m[1])
	if err != nil {
		return Command{}, false
	}
	return Command{Kind: KindGoalSet, GoalKcal: kcal}, true
}

// wordMatcher は語のいずれかと完全一致した場合にkindを返すマッチャを作る。
// 部分一致にすると「コーチングについて教えて」のような食べ物でない
// 質問まで巻き込むため完全一致に限定する。
func wordMatcher(words []string, kind Kind) matcher {
	return func(_, lowered string) (Command, bool) {
		for _, w := range words {
			if lowered == strings.ToLower(w) {
				return Command{Kind: kind}, true
			}
		}
		return Command{}, false
	}
}

func rangeMatcher(cal *calendar.Calendar) matcher {
	return func(trimmed, _ string) (Command, bool) {
		start, end, ok := cal.ParseRangeCommand(trimmed)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: KindRange, Start: start, End: end}, true
	}
}

func dayMatcher(cal *calendar.Calendar) matcher {
	return func(trimmed, _ string) (Command, bool) {
		date, ok := cal.ParseSingleDateCommand(trimmed)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: KindDay, Date: date}, true
	}
}
