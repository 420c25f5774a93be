// Package bot はWebhookイベントを受けて記録・集計・コーチングの各機能を
// 編成するボット本体を提供する。
package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/calobot/internal/calendar"
	"github.com/hitoshi/calobot/internal/coach"
	"github.com/hitoshi/calobot/internal/command"
	"github.com/hitoshi/calobot/internal/foodlog"
	"github.com/hitoshi/calobot/internal/line"
	"github.com/hitoshi/calobot/internal/metrics"
	"github.com/hitoshi/calobot/internal/model"
	"github.com/hitoshi/calobot/internal/nutrition"
	"github.com/hitoshi/calobot/internal/repository"
)

// Messenger はユーザーへのメッセージ送信。
// Replyは応答トークンで1回だけ使え、Pushはいつでも送れる。
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, userID, text string) error
}

// ContentFetcher はメッセージIDによる画像バイト列の取得。
type ContentFetcher interface {
	FetchContent(ctx context.Context, messageID string) ([]byte, error)
}

// Estimator は栄養推定モデルへの照会。生の応答文字列を返す。
type Estimator interface {
	EstimateText(ctx context.Context, query string) (string, error)
	EstimateImage(ctx context.Context, imageURL string) (string, error)
}

// ImageUploader は画像の外部ホスティング。公開URLを返す。
type ImageUploader interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// RateLimiter はユーザーごとの推定呼び出し可否判定。
type RateLimiter interface {
	Allow(userID string) bool
}

// Config はProcessorの依存一式。
type Config struct {
	Messenger  Messenger
	Fetcher    ContentFetcher
	Estimator  Estimator
	Uploader   ImageUploader
	Limiter    RateLimiter
	FoodRepo   repository.FoodLogRepository
	GoalRepo   repository.UserGoalRepository
	CoachCache *coach.CacheService
	Calendar   *calendar.Calendar
	Fold       nutrition.FoldPolicy
	Metrics    metrics.MetricsCollector
}

// Processor はWebhookイベントの処理本体。
//
// 送信の約束事:
//   - 応答トークンは最初の受理通知(ack)で1回だけ使う
//   - 時間のかかる処理の結果は必ずプッシュ送信で届ける
//   - ackは推定・保存のどの処理よりも先に送る
type Processor struct {
	messenger  Messenger
	fetcher    ContentFetcher
	estimator  Estimator
	uploader   ImageUploader
	limiter    RateLimiter
	dedup      *foodlog.DedupService
	agg        *foodlog.AggregateService
	foodRepo   repository.FoodLogRepository
	goalRepo   repository.UserGoalRepository
	coachCache *coach.CacheService
	router     *command.Router
	cal        *calendar.Calendar
	fold       nutrition.FoldPolicy
	metrics    metrics.MetricsCollector
}

// NewProcessor は新しいProcessorを生成する。
func NewProcessor(cfg Config) *Processor {
	fold := cfg.Fold
	if fold == nil {
		fold = nutrition.DefaultFoldPolicy()
	}
	var collector metrics.MetricsCollector = cfg.Metrics
	if collector == nil {
		collector = nopMetrics{}
	}
	return &Processor{
		messenger:  cfg.Messenger,
		fetcher:    cfg.Fetcher,
		estimator:  cfg.Estimator,
		uploader:   cfg.Uploader,
		limiter:    cfg.Limiter,
		dedup:      foodlog.NewDedupService(cfg.FoodRepo),
		agg:        foodlog.NewAggregateService(cfg.FoodRepo),
		foodRepo:   cfg.FoodRepo,
		goalRepo:   cfg.GoalRepo,
		coachCache: cfg.CoachCache,
		router:     command.NewRouter(cfg.Calendar),
		cal:        cfg.Calendar,
		fold:       fold,
		metrics:    collector,
	}
}

// ProcessBatch はWebhookで届いたイベント群を順に処理する。
// 1イベントの失敗やpanicは他のイベントの処理を妨げない。
func (p *Processor) ProcessBatch(ctx context.Context, events []line.Event) {
	for _, ev := range events {
		p.processOne(ctx, ev)
	}
}

func (p *Processor) processOne(ctx context.Context, ev line.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("イベント処理中にpanic",
				"user_id", ev.UserID,
				"message_id", ev.MessageID,
				"panic", r,
			)
		}
	}()

	switch ev.Kind {
	case line.EventText:
		p.metrics.RecordEventReceived("text")
		p.handleText(ctx, ev)
	case line.EventImage:
		p.metrics.RecordEventReceived("image")
		p.handleImage(ctx, ev)
	}
}

// handleText はテキストイベントをコマンドに振り分けて実行する。
func (p *Processor) handleText(ctx context.Context, ev line.Event) {
	cmd := p.router.Route(ev.Text)

	switch cmd.Kind {
	case command.KindGoalSet:
		p.handleGoalSet(ctx, ev, cmd.GoalKcal)
	case command.KindGoalClear:
		p.handleGoalClear(ctx, ev)
	case command.KindUndo:
		// 取消は冪等でないため、再送での二重適用を避ける
		if ev.Redelivery {
			slog.Info("再配送の取消コマンドを抑止", "user_id", ev.UserID, "message_id", ev.MessageID)
			return
		}
		p.handleUndo(ctx, ev)
	case command.KindCoach:
		p.handleCoach(ctx, ev)
	case command.KindDay:
		p.handleDayReport(ctx, ev, cmd.Date)
	case command.KindRange:
		p.handleRangeReport(ctx, ev, cmd.Start, cmd.End)
	case command.KindFood:
		p.handleFoodText(ctx, ev, cmd.Query)
	}
}

// handleFoodText は食べ物テキストの推定と記録を行う。
func (p *Processor) handleFoodText(ctx context.Context, ev line.Event, query string) {
	if query == "" {
		p.reply(ctx, ev, msgUsageHint)
		return
	}

	// 再配送の抑止。保存済みメッセージは通知も保存もしない。
	if dup, err := p.dedup.HasEntryForMessage(ctx, ev.UserID, ev.MessageID); err == nil && dup {
		p.metrics.RecordDuplicateSuppressed("redelivery")
		slog.Info("再配送イベントを抑止", "user_id", ev.UserID, "message_id", ev.MessageID)
		return
	}

	p.reply(ctx, ev, msgTextAck)

	if !p.limiter.Allow(ev.UserID) {
		p.push(ctx, ev.UserID, msgRateLimited)
		return
	}

	start := time.Now()
	p.metrics.RecordEstimateCall("text")
	raw, err := p.estimator.EstimateText(ctx, query)
	p.metrics.RecordEstimateLatency(time.Since(start))
	if err != nil {
		p.metrics.RecordEstimateFailure("text")
		p.pushFailure(ctx, ev, model.NewEstimateCallError(err))
		return
	}

	result := nutrition.ParseSingleEstimate(raw, query, p.fold)
	if !result.Usable() {
		p.metrics.RecordEstimateFailure("text")
		p.pushFailure(ctx, ev, model.NewEstimateUnusableError(result.Reason))
		return
	}

	p.storeAndReport(ctx, ev, result, "")
}

// handleImage は食事画像の推定と記録を行う。
func (p *Processor) handleImage(ctx context.Context, ev line.Event) {
	if dup, err := p.dedup.HasEntryForMessage(ctx, ev.UserID, ev.MessageID); err == nil && dup {
		p.metrics.RecordDuplicateSuppressed("redelivery")
		slog.Info("再配送イベントを抑止", "user_id", ev.UserID, "message_id", ev.MessageID)
		return
	}

	p.reply(ctx, ev, msgImageAck)

	image, err := p.fetcher.FetchContent(ctx, ev.MessageID)
	if err != nil {
		p.pushFailure(ctx, ev, model.NewContentFetchError(err))
		return
	}

	today := p.cal.Today()
	hash := foodlog.ImageHash(image)

	// 同一写真の同日再送は推定を呼ばずに抑止する
	if dup, err := p.dedup.HasImageHashToday(ctx, ev.UserID, today, hash); err == nil && dup {
		p.metrics.RecordDuplicateSuppressed("image_hash")
		p.push(ctx, ev.UserID, msgDuplicateImage)
		return
	}

	if !p.limiter.Allow(ev.UserID) {
		p.push(ctx, ev.UserID, msgRateLimited)
		return
	}

	imageURL, err := p.uploader.Upload(ctx, image)
	if err != nil {
		p.pushFailure(ctx, ev, model.NewImageUploadError(err))
		return
	}

	start := time.Now()
	p.metrics.RecordEstimateCall("image")
	raw, err := p.estimator.EstimateImage(ctx, imageURL)
	p.metrics.RecordEstimateLatency(time.Since(start))
	if err != nil {
		p.metrics.RecordEstimateFailure("image")
		p.pushFailure(ctx, ev, model.NewEstimateCallError(err))
		return
	}

	result := nutrition.ParseImageEstimate(raw)
	if !result.Usable() {
		p.metrics.RecordEstimateFailure("image")
		p.pushFailure(ctx, ev, model.NewEstimateUnusableError(result.Reason))
		return
	}

	p.storeAndReport(ctx, ev, result, hash)
}

// storeAndReport は利用可能な推定結果を保存し、結果にコーチングを添えて通知する。
func (p *Processor) storeAndReport(ctx context.Context, ev line.Event, result model.EstimateResult, imageHash string) {
	today := p.cal.Today()
	stored, err := p.dedup.UpsertItems(ctx, ev.UserID, ev.MessageID, today, imageHash, result.Items, time.Now())
	if err != nil {
		p.pushFailure(ctx, ev, model.NewStoreWriteError(err))
		return
	}
	p.metrics.RecordEntriesUpserted(stored)

	report := formatEstimateReport(result)

	// 保存直後の今日の実績に対するコーチング。集計の失敗は記録通知を妨げない。
	day, err := p.agg.Day(ctx, ev.UserID, today)
	if err == nil && day.Found {
		report += "\n\n" + p.coachText(ctx, ev.UserID, "day", today, coach.DayCacheKey(today), day.Entries, day.Total)
	}

	p.push(ctx, ev.UserID, report)
}

// handleGoalSet は目標カロリーを設定する。範囲外は許容範囲にクランプする。
func (p *Processor) handleGoalSet(ctx context.Context, ev line.Event, kcal int) {
	clamped := model.ClampGoalKcal(kcal)
	goal := &model.UserGoal{
		UserID:      ev.UserID,
		CalorieGoal: clamped,
		UpdatedAt:   time.Now(),
	}
	if err := p.goalRepo.Upsert(ctx, goal); err != nil {
		p.replyFailure(ctx, ev, model.NewStoreWriteError(err))
		return
	}
	p.reply(ctx, ev, formatGoalSet(kcal, clamped))
}

// handleGoalClear は目標カロリーを解除する。
func (p *Processor) handleGoalClear(ctx context.Context, ev line.Event) {
	if err := p.goalRepo.Delete(ctx, ev.UserID); err != nil {
		p.replyFailure(ctx, ev, model.NewStoreWriteError(err))
		return
	}
	p.reply(ctx, ev, msgGoalCleared)
}

// handleUndo は今日の最新の記録1件を取り消す。
func (p *Processor) handleUndo(ctx context.Context, ev line.Event) {
	deleted, err := p.foodRepo.DeleteLatest(ctx, ev.UserID, p.cal.Today())
	if err != nil {
		p.replyFailure(ctx, ev, model.NewStoreWriteError(err))
		return
	}
	if deleted == nil {
		p.reply(ctx, ev, msgNothingToUndo)
		return
	}
	p.reply(ctx, ev, formatUndone(deleted))
}

// handleCoach は今日の実績に対するコーチングを返す。
func (p *Processor) handleCoach(ctx context.Context, ev line.Event) {
	today := p.cal.Today()
	day, err := p.agg.Day(ctx, ev.UserID, today)
	if err != nil {
		p.replyFailure(ctx, ev, model.NewStoreReadError(err))
		return
	}

	text := p.coachText(ctx, ev.UserID, "day", today, coach.DayCacheKey(today), day.Entries, day.Total)
	p.reply(ctx, ev, text)
}

// handleDayReport は単日の集計レポートにコーチングを添えて返す。
func (p *Processor) handleDayReport(ctx context.Context, ev line.Event, date string) {
	day, err := p.agg.Day(ctx, ev.UserID, date)
	if err != nil {
		p.replyFailure(ctx, ev, model.NewStoreReadError(err))
		return
	}
	if !day.Found {
		p.reply(ctx, ev, formatNoRecords(date))
		return
	}

	goalKcal := p.findGoalKcal(ctx, ev.UserID)
	report := formatDayReport(date, day, goalKcal)
	coachText := p.coachText(ctx, ev.UserID, "day", date, coach.DayCacheKey(date), day.Entries, day.Total)
	p.reply(ctx, ev, report+"\n\n"+coachText)
}

// handleRangeReport は期間の集計レポートにコーチングを添えて返す。
func (p *Processor) handleRangeReport(ctx context.Context, ev line.Event, start, end string) {
	rng, err := p.agg.Range(ctx, ev.UserID, start, end)
	if err != nil {
		p.replyFailure(ctx, ev, model.NewStoreReadError(err))
		return
	}
	if !rng.Found {
		p.reply(ctx, ev, formatNoRecordsRange(start, end))
		return
	}

	label := start + "〜" + end
	report := formatRangeReport(start, end, rng)
	coachText := p.coachText(ctx, ev.UserID, "range", label, coach.RangeCacheKey(start, end), rng.Entries, rng.Average)
	p.reply(ctx, ev, report+"\n\n"+coachText)
}

// coachText はキャッシュ付きでコーチングテキストを取得する。
// 期間の場合は1日あたり平均を入力にする。
func (p *Processor) coachText(
	ctx context.Context,
	userID, scope, dateLabel, cacheKey string,
	entries []*model.FoodLogEntry,
	total model.Aggregate,
) string {
	in := coach.AdviceInput{
		Scope:     scope,
		DateLabel: dateLabel,
		Total:     total,
		GoalKcal:  p.findGoalKcal(ctx, userID),
		TopFoods:  topFoods(entries, 3),
	}
	text, cached := p.coachCache.Get(ctx, userID, cacheKey, entries, in)
	if cached {
		p.metrics.RecordCoachCacheHit()
	} else {
		p.metrics.RecordCoachCacheMiss()
	}
	return text
}

// findGoalKcal はユーザーの目標カロリーを返す。未設定・取得失敗は0。
func (p *Processor) findGoalKcal(ctx context.Context, userID string) int {
	goal, err := p.goalRepo.Find(ctx, userID)
	if err != nil {
		slog.Warn("目標の取得に失敗", "user_id", userID, "error", err)
		return 0
	}
	if goal == nil {
		return 0
	}
	return goal.CalorieGoal
}

// topFoods はカロリーの大きい順に最大n件の食品名を返す。
func topFoods(entries []*model.FoodLogEntry, n int) []string {
	sorted := make([]*model.FoodLogEntry, len(entries))
	copy(sorted, entries)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Calories > sorted[i].Calories {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	names := make([]string, 0, n)
	for _, e := range sorted {
		if len(names) >= n {
			break
		}
		names = append(names, e.FoodName)
	}
	return names
}

// pushFailure は失敗をコードとカテゴリ付きでログに残し、ユーザー向け通知文をプッシュ送信する。
func (p *Processor) pushFailure(ctx context.Context, ev line.Event, e *model.BotError) {
	p.logFailure(ev, e)
	p.push(ctx, ev.UserID, e.Notice)
}

// replyFailure はpushFailureの応答トークン版。ackを送っていないフローで使う。
func (p *Processor) replyFailure(ctx context.Context, ev line.Event, e *model.BotError) {
	p.logFailure(ev, e)
	p.reply(ctx, ev, e.Notice)
}

func (p *Processor) logFailure(ev line.Event, e *model.BotError) {
	slog.Error("イベント処理に失敗",
		"user_id", ev.UserID,
		"message_id", ev.MessageID,
		"code", e.Code,
		"category", e.Category,
		"error", e.Message,
	)
}

// reply は受理通知を送る。失敗してもイベント処理は続行する。
func (p *Processor) reply(ctx context.Context, ev line.Event, text string) {
	if err := p.messenger.Reply(ctx, ev.ReplyToken, text); err != nil {
		slog.Warn("返信に失敗", "user_id", ev.UserID, "error", err)
	}
}

// push は処理結果を送る。失敗はメトリクスに記録する。
func (p *Processor) push(ctx context.Context, userID, text string) {
	if err := p.messenger.Push(ctx, userID, text); err != nil {
		p.metrics.RecordPushFailure()
		slog.Error("プッシュ送信に失敗", "user_id", userID, "error", err)
	}
}

// nopMetrics はメトリクス未設定時の何もしない実装。
type nopMetrics struct{}

func (nopMetrics) RecordEventReceived(string)          {}
func (nopMetrics) RecordEstimateCall(string)           {}
func (nopMetrics) RecordEstimateFailure(string)        {}
func (nopMetrics) RecordEstimateLatency(time.Duration) {}
func (nopMetrics) RecordDuplicateSuppressed(string)    {}
func (nopMetrics) RecordCoachCacheHit()                {}
func (nopMetrics) RecordCoachCacheMiss()               {}
func (nopMetrics) RecordEntriesUpserted(int)           {}
func (nopMetrics) RecordPushFailure()                  {}
