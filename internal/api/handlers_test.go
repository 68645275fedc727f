package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loa-bot/internal/api"
	"loa-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type stubLeaves struct {
	leaves []models.Leave
	err    error
}

func (s *stubLeaves) ListLeaves(context.Context) ([]models.Leave, error) {
	return s.leaves, s.err
}

func (s *stubLeaves) GetLeave(_ context.Context, subjectID string) (*models.Leave, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, l := range s.leaves {
		if l.SubjectID == subjectID {
			return &l, nil
		}
	}
	return nil, nil
}

type stubSweeper struct {
	closed int
	err    error
	calls  int
}

func (s *stubSweeper) RunNow(context.Context) (int, error) {
	s.calls++
	return s.closed, s.err
}

func newServer(leaves *stubLeaves, sweeper *stubSweeper) http.Handler {
	h := api.NewHandler(leaves, sweeper)
	h.Now = func() time.Time { return now }
	return api.NewRouter(h, nil)
}

func do(t *testing.T, srv http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(&stubLeaves{}, &stubSweeper{}), http.MethodGet, "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListLeaves(t *testing.T) {
	leaves := &stubLeaves{leaves: []models.Leave{
		{SubjectID: "1", StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-time.Hour), Reason: "gone"},
		{SubjectID: "2", StartDate: now, EndDate: now.AddDate(0, 0, 7), Reason: "vacation"},
	}}

	rec := do(t, newServer(leaves, &stubSweeper{}), http.MethodGet, "/api/leaves")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []api.LeaveDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.True(t, got[0].Expired)
	assert.False(t, got[1].Expired)
	assert.Equal(t, "vacation", got[1].Reason)
}

func TestListLeaves_Empty(t *testing.T) {
	rec := do(t, newServer(&stubLeaves{}, &stubSweeper{}), http.MethodGet, "/api/leaves")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListLeaves_StoreError(t *testing.T) {
	rec := do(t, newServer(&stubLeaves{err: errors.New("locked")}, &stubSweeper{}), http.MethodGet, "/api/leaves")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed to list leaves", resp.Error)
	assert.Equal(t, "locked", resp.Details)
}

func TestGetLeave(t *testing.T) {
	leaves := &stubLeaves{leaves: []models.Leave{
		{SubjectID: "42", StartDate: now, EndDate: now.AddDate(0, 0, 1), Reason: "sick"},
	}}
	srv := newServer(leaves, &stubSweeper{})

	rec := do(t, srv, http.MethodGet, "/api/leaves/42")
	require.Equal(t, http.StatusOK, rec.Code)
	var got api.LeaveDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "42", got.SubjectID)
	assert.Equal(t, "sick", got.Reason)

	rec = do(t, srv, http.MethodGet, "/api/leaves/7")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunSweep(t *testing.T) {
	sweeper := &stubSweeper{closed: 3}
	srv := newServer(&stubLeaves{}, sweeper)

	rec := do(t, srv, http.MethodPost, "/api/sweep")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"closed":3}`, rec.Body.String())
	assert.Equal(t, 1, sweeper.calls)

	rec = do(t, srv, http.MethodGet, "/api/sweep")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunSweep_Error(t *testing.T) {
	rec := do(t, newServer(&stubLeaves{}, &stubSweeper{err: errors.New("boom")}), http.MethodPost, "/api/sweep")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
