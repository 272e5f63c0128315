package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, repo *memRepo) chi.Router {
	t.Helper()
	handler := NewHandler(nil, NewService(repo, nil), "Rounded Off")
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func postJSON(t *testing.T, router chi.Router, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data)))
	return rec
}

func TestPostingEndpoint(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	router := testRouter(t, repo)

	rec := postJSON(t, router, "/postings", map[string]any{
		"date":          "2024-01-10",
		"referenceType": "JournalEntry",
		"referenceName": "JE-0001",
		"lines": []map[string]string{
			{"account": "Cash", "debit": "1000"},
			{"account": "Sales", "credit": "1000"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entries []Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	cash, err := repo.GetAccount(context.Background(), "Cash")
	require.NoError(t, err)
	require.True(t, cash.Balance.Equal(dec("1000")))
}

func TestPostingEndpointRoundOff(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	require.NoError(t, repo.InsertAccount(context.Background(),
		Account{Name: "Rounded Off", RootType: RootTypeExpense, AccountType: AccountTypeRoundOff}))
	router := testRouter(t, repo)

	rec := postJSON(t, router, "/postings", map[string]any{
		"date":          "2024-01-10",
		"referenceType": "SalesInvoice",
		"referenceName": "SINV-0001",
		"roundOff":      true,
		"lines": []map[string]string{
			{"account": "Debtors", "debit": "100.30"},
			{"account": "Sales", "credit": "100"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entries []Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
}

func TestPostingEndpointRejectsUnbalanced(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	router := testRouter(t, repo)

	rec := postJSON(t, router, "/postings", map[string]any{
		"date":          "2024-01-10",
		"referenceType": "JournalEntry",
		"referenceName": "JE-0002",
		"lines": []map[string]string{
			{"account": "Cash", "debit": "100"},
			{"account": "Sales", "credit": "90"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReverseEndpoint(t *testing.T) {
	repo := newMemRepo()
	seedAccounts(t, repo)
	router := testRouter(t, repo)

	rec := postJSON(t, router, "/postings", map[string]any{
		"date":          "2024-01-10",
		"referenceType": "JournalEntry",
		"referenceName": "JE-0003",
		"lines": []map[string]string{
			{"account": "Cash", "debit": "50"},
			{"account": "Sales", "credit": "50"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var busted bool
	// Re-mount with the Posted hook attached to observe invalidation.
	handler := NewHandler(nil, NewService(repo, nil), "Rounded Off")
	handler.Posted = func() { busted = true }
	r := chi.NewRouter()
	handler.MountRoutes(r)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/postings/JE-0003/reverse", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, busted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/postings/JE-0003/reverse", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAccountEndpoint(t *testing.T) {
	repo := newMemRepo()
	router := testRouter(t, repo)

	rec := postJSON(t, router, "/accounts", map[string]any{
		"name":     "Assets",
		"rootType": "Asset",
		"isGroup":  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/accounts", map[string]any{
		"name":     "Assets",
		"rootType": "Asset",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}
