package foodlog

import (
	"context"
	"math"

	"github.com/hitoshi/calobot/internal/model"
	"github.com/hitoshi/calobot/internal/repository"
)

// AggregateService は食事記録の単日・期間集計を提供する。
type AggregateService struct {
	repo repository.FoodLogRepository
}

// NewAggregateService はAggregateServiceの新しいインスタンスを生成する。
func NewAggregateService(repo repository.FoodLogRepository) *AggregateService {
	return &AggregateService{repo: repo}
}

// DayResult は単日集計の結果。
// Foundがfalseの場合はその日に記録が1件もないことを表し、
// 「ゼロカロリーを食べた」結果とは区別される。
type DayResult struct {
	Entries []*model.FoodLogEntry
	Total   model.Aggregate
	Found   bool
}

// RangeResult は期間集計の結果。
// DayCountは実際に記録のあった日数（暦日数ではない）。
type RangeResult struct {
	Entries  []*model.FoodLogEntry
	Total    model.Aggregate
	DayCount int
	Average  model.Aggregate
	Found    bool
}

// Sum は記録リストの要素ごとの栄養合計を計算する。空リストは全ゼロ。
func Sum(entries []*model.FoodLogEntry) model.Aggregate {
	var agg model.Aggregate
	for _, e := range entries {
		agg.Kcal += e.Calories
		agg.Protein += e.Protein
		agg.Fat += e.Fat
		agg.Carbs += e.Carbs
	}
	return agg
}

// Average は合計をデータのあった日数で割った1日あたりの値を返す。
// ゼロ除算を避けるため除数はmax(1, distinctDayCount)とする。
func Average(total model.Aggregate, distinctDayCount int) model.Aggregate {
	days := distinctDayCount
	if days < 1 {
		days = 1
	}
	d := float64(days)
	return model.Aggregate{
		Kcal:    int(math.Round(float64(total.Kcal) / d)),
		Protein: total.Protein / d,
		Fat:     total.Fat / d,
		Carbs:   total.Carbs / d,
		Days:    distinctDayCount,
	}
}

// Day は指定暦日の記録を取得して集計する。
// 記録が1件もない場合はFound=falseを返し、全ゼロの合計とは区別する。
func (s *AggregateService) Day(ctx context.Context, userID, date string) (*DayResult, error) {
	entries, err := s.repo.ListByDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return &DayResult{
		Entries: entries,
		Total:   Sum(entries),
		Found:   len(entries) > 0,
	}, nil
}

// Range は[start, end]（両端含む）の記録を取得して集計する。
// DayCountには実際に記録のあった日の数だけを数える。7日間のうち3日分しか
// 記録がなければ平均の除数は3になる。該当なしはFound=false。
func (s *AggregateService) Range(ctx context.Context, userID, start, end string) (*RangeResult, error) {
	entries, err := s.repo.ListByRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.EatenAt] = struct{}{}
	}

	total := Sum(entries)
	dayCount := len(seen)
	return &RangeResult{
		Entries:  entries,
		Total:    total,
		DayCount: dayCount,
		Average:  Average(total, dayCount),
		Found:    len(entries) > 0,
	}, nil
}
