package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/platform/httpx"
)

// Handler wires ledger endpoints.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	roundOffAccount string
	// Posted is invoked after a successful post or reversal; the report
	// layer hooks cache invalidation here.
	Posted func()
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roundOffAccount string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, roundOffAccount: roundOffAccount}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Get("/entries", h.listEntries)
	r.Post("/postings", h.post)
	r.Post("/postings/{reference}/reverse", h.reverse)
}

type accountRequest struct {
	Name          string  `json:"name"`
	RootType      string  `json:"rootType"`
	AccountType   string  `json:"accountType"`
	IsGroup       bool    `json:"isGroup"`
	ParentAccount *string `json:"parentAccount"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.CreateAccount(r.Context(), Account{
		Name:          req.Name,
		RootType:      RootType(req.RootType),
		AccountType:   AccountType(req.AccountType),
		IsGroup:       req.IsGroup,
		ParentAccount: req.ParentAccount,
	})
	if err != nil {
		h.respondError(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		h.respondError(w, "list accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	filter := EntryFilter{
		Account:       r.URL.Query().Get("account"),
		Party:         r.URL.Query().Get("party"),
		ReferenceType: ReferenceType(r.URL.Query().Get("referenceType")),
		ReferenceName: r.URL.Query().Get("referenceName"),
	}
	entries, err := h.service.Entries(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type postingLine struct {
	Account string `json:"account"`
	Debit   string `json:"debit"`
	Credit  string `json:"credit"`
}

type postingRequest struct {
	Date          string        `json:"date"`
	ReferenceType string        `json:"referenceType"`
	ReferenceName string        `json:"referenceName"`
	Party         string        `json:"party"`
	Description   string        `json:"description"`
	RoundOff      bool          `json:"roundOff"`
	Lines         []postingLine `json:"lines"`
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	poster := NewPoster(date, ReferenceType(req.ReferenceType), req.ReferenceName).
		WithParty(req.Party).
		WithDescription(req.Description).
		WithRoundOffAccount(h.roundOffAccount)
	for _, line := range req.Lines {
		if line.Debit != "" {
			amount, err := decimal.NewFromString(line.Debit)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bad debit amount")
				return
			}
			if err := poster.Debit(line.Account, amount); err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
				return
			}
		}
		if line.Credit != "" {
			amount, err := decimal.NewFromString(line.Credit)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bad credit amount")
				return
			}
			if err := poster.Credit(line.Account, amount); err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
				return
			}
		}
	}
	if req.RoundOff {
		if err := poster.MakeRoundOffEntry(); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	entries, err := h.service.Post(r.Context(), poster)
	if err != nil {
		h.respondError(w, "post", err)
		return
	}
	h.notifyPosted()
	httpx.JSON(w, http.StatusCreated, entries)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	entries, err := h.service.Reverse(r.Context(), reference)
	if err != nil {
		h.respondError(w, "reverse", err)
		return
	}
	h.notifyPosted()
	httpx.JSON(w, http.StatusCreated, entries)
}

func (h *Handler) notifyPosted() {
	if h.Posted != nil {
		h.Posted()
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewEntries), errors.Is(err, ErrNegativeAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrNothingToReverse):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateAccount):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
