package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/history"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/sqlite"
)

func newHistoryServer(t *testing.T) (http.Handler, *history.Service) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := history.NewService(sqlite.NewHistoryStore(db), nil)
	h := NewHistoryHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/v1/history", func(r chi.Router) {
		r.Get("/", h.ListHistory)
		r.Delete("/", h.ClearHistory)
		r.Get("/{id}", h.GetHistory)
		r.Delete("/{id}", h.DeleteHistory)
	})
	return r, svc
}

func TestHistoryHandler_ListNewestFirst(t *testing.T) {
	t.Parallel()

	h, svc := newHistoryServer(t)
	for i := range 3 {
		_, err := svc.Add(context.Background(), history.Entry{ChartType: "flowchart", UserInput: fmt.Sprintf("req-%d", i), GeneratedCode: "[]"})
		require.NoError(t, err)
	}

	rr := serve(h, http.MethodGet, "/api/v1/history?limit=2&offset=0", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp listHistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "req-2", resp.Data[0].UserInput)
	assert.Equal(t, "req-1", resp.Data[1].UserInput)
	assert.Equal(t, Meta{Total: 3, Limit: 2, Offset: 0}, resp.Meta)

	rr = serve(h, http.MethodGet, "/api/v1/history?limit=1000", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, history.MaxPageSize, resp.Meta.Limit)
}

func TestHistoryHandler_GetDeleteClear(t *testing.T) {
	t.Parallel()

	h, svc := newHistoryServer(t)
	rec, err := svc.Add(context.Background(), history.Entry{UserInput: "a", GeneratedCode: "[]"})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), history.Entry{UserInput: "b", GeneratedCode: "[]"})
	require.NoError(t, err)

	got := serve(h, http.MethodGet, "/api/v1/history/"+rec.ID, "")
	require.Equal(t, http.StatusOK, got.Code)
	var r history.Record
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &r))
	assert.Equal(t, "auto", r.ChartType)

	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodDelete, "/api/v1/history/"+rec.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/history/"+rec.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodDelete, "/api/v1/history/"+rec.ID, "").Code)

	cleared := serve(h, http.MethodDelete, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, cleared.Code)
	assert.JSONEq(t, `{"deleted":1}`, cleared.Body.String())
}
