package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/ledger"
	"github.com/quillbooks/quillbooks/internal/platform/httpx"
	"github.com/quillbooks/quillbooks/internal/reports"
)

// Handler serves the report suite.
type Handler struct {
	logger   *slog.Logger
	service  *reports.Service
	cache    *ViewCache
	validate *validator.Validate
}

// NewHandler builds a report handler.
func NewHandler(logger *slog.Logger, service *reports.Service, cache *ViewCache) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		cache:    cache,
		validate: validator.New(),
	}
}

// MountRoutes registers the report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/general-ledger", h.generalLedger)
	r.Get("/reports/profit-and-loss", h.statement("pl", (*reports.Service).ProfitAndLoss))
	r.Get("/reports/cash-flow", h.statement("cf", (*reports.Service).CashFlow))
	r.Get("/reports/balance-sheet", h.statement("bs", (*reports.Service).BalanceSheet))
	r.Get("/reports/trial-balance", h.trialBalance)
}

// Bust drops cached reports; hooked to posting events.
func (h *Handler) Bust(ctx context.Context) {
	h.cache.Bust(ctx)
}

// StatementCacheKey derives the cache key for a statement request. The
// warmup job uses the same keys so precomputed reports hit.
func StatementCacheKey(name string, req reports.StatementRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s", name, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), req.Periodicity)
}

type statementQuery struct {
	From        string `validate:"required,datetime=2006-01-02"`
	To          string `validate:"required,datetime=2006-01-02"`
	Periodicity string `validate:"omitempty"`
}

func (h *Handler) parseStatementRequest(r *http.Request) (reports.StatementRequest, error) {
	q := statementQuery{
		From:        r.URL.Query().Get("from"),
		To:          r.URL.Query().Get("to"),
		Periodicity: r.URL.Query().Get("periodicity"),
	}
	if err := h.validate.Struct(q); err != nil {
		return reports.StatementRequest{}, err
	}
	from, _ := time.Parse("2006-01-02", q.From)
	to, _ := time.Parse("2006-01-02", q.To)
	periodicity := fiscal.Monthly
	if q.Periodicity != "" {
		var err error
		if periodicity, err = fiscal.ParsePeriodicity(q.Periodicity); err != nil {
			return reports.StatementRequest{}, err
		}
	}
	if to.Before(from) {
		return reports.StatementRequest{}, errors.New("to precedes from")
	}
	return reports.StatementRequest{From: from, To: to, Periodicity: periodicity}, nil
}

type statementFn func(*reports.Service, context.Context, reports.StatementRequest) (reports.Statement, error)

func (h *Handler) statement(name string, build statementFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := h.parseStatementRequest(r)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		key := StatementCacheKey(name, req)
		var cached reports.Statement
		if h.cache.Get(r.Context(), key, &cached) {
			httpx.JSON(w, http.StatusOK, cached)
			return
		}
		result, err, _ := singleflightBuild(r.Context(), key, func(ctx context.Context) (any, error) {
			return build(h.service, ctx, req)
		})
		if err != nil {
			h.logger.Error("build statement", slog.String("report", name), slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		statement := result.(reports.Statement)
		h.cache.Set(r.Context(), key, statement)
		httpx.JSON(w, http.StatusOK, statement)
	}
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := reports.GLRequest{
		Account:       q.Get("account"),
		Party:         q.Get("party"),
		ReferenceType: ledger.ReferenceType(q.Get("referenceType")),
		ReferenceName: q.Get("referenceName"),
		GroupBy:       reports.GroupBy(q.Get("groupBy")),
		Descending:    q.Get("order") == "desc",
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		req.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		req.To = to
	}
	report, err := h.service.GeneralLedger(r.Context(), req)
	if err != nil {
		h.logger.Error("general ledger", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseStatementRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	report, err := h.service.TrialBalanceReport(r.Context(), reports.TrialBalanceRequest{From: req.From, To: req.To})
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
