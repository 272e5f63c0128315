package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/reports"
	reportshttp "github.com/quillbooks/quillbooks/internal/reports/http"
)

// ReportsWarmupJob precomputes the statement suite into the report cache.
type ReportsWarmupJob struct {
	Reports *reports.Service
	Cache   *reportshttp.ViewCache
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(svc *reports.Service, cache *reportshttp.ViewCache, logger *slog.Logger) *ReportsWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsWarmupJob{
		Reports: svc,
		Cache:   cache,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes reports warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	req, err := j.request(payload)
	if err != nil {
		j.Logger.Error("warmup payload", slog.Any("error", err))
		return asynq.SkipRetry
	}

	j.Logger.Info("starting report warmup",
		slog.Time("from", req.From), slog.Time("to", req.To))

	builders := []struct {
		name  string
		build func(context.Context, reports.StatementRequest) (reports.Statement, error)
	}{
		{"pl", j.Reports.ProfitAndLoss},
		{"cf", j.Reports.CashFlow},
		{"bs", j.Reports.BalanceSheet},
	}
	for _, b := range builders {
		statement, err := b.build(ctx, req)
		if err != nil {
			j.Logger.Error("warm statement", slog.String("report", b.name), slog.Any("error", err))
			return err
		}
		j.Cache.Set(ctx, reportshttp.StatementCacheKey(b.name, req), statement)
	}
	j.Logger.Info("report warmup complete", slog.Int("statements", len(builders)))
	return nil
}

// request resolves the payload window, defaulting to the fiscal year
// containing today.
func (j *ReportsWarmupJob) request(payload ReportsWarmupPayload) (reports.StatementRequest, error) {
	periodicity := fiscal.Monthly
	if payload.Periodicity != "" {
		var err error
		if periodicity, err = fiscal.ParsePeriodicity(payload.Periodicity); err != nil {
			return reports.StatementRequest{}, err
		}
	}
	if payload.From != "" && payload.To != "" {
		from, err := time.Parse("2006-01-02", payload.From)
		if err != nil {
			return reports.StatementRequest{}, err
		}
		to, err := time.Parse("2006-01-02", payload.To)
		if err != nil {
			return reports.StatementRequest{}, err
		}
		return reports.StatementRequest{From: from, To: to, Periodicity: periodicity}, nil
	}
	fy := j.Reports.FiscalYear()
	now := j.clock()
	startYear := fy.StartYearFor(now)
	from := time.Date(startYear, fy.StartMonth, fy.StartDay, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, -1)
	return reports.StatementRequest{From: from, To: to, Periodicity: periodicity}, nil
}
