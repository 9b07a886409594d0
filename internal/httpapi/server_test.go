package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacelabs/solaced/internal/agenda"
	"github.com/solacelabs/solaced/internal/capture"
	"github.com/solacelabs/solaced/internal/cluster"
	"github.com/solacelabs/solaced/internal/daycache"
	"github.com/solacelabs/solaced/internal/domino"
	"github.com/solacelabs/solaced/internal/focus"
	"github.com/solacelabs/solaced/internal/inference"
	"github.com/solacelabs/solaced/internal/interpret"
	"github.com/solacelabs/solaced/internal/logging"
	"github.com/solacelabs/solaced/internal/pipeline"
	"github.com/solacelabs/solaced/internal/scoring"
	"github.com/solacelabs/solaced/internal/task"
)

func newTestServer(t *testing.T) (*Server, *task.MemStore) {
	t.Helper()
	store := task.NewMemStore()
	logger := logging.NewNop()

	// Disabled provider: every stage uses its deterministic fallback.
	provider, err := interpret.NewProvider(interpret.Config{})
	require.NoError(t, err)
	client := interpret.NewClient(provider, time.Second)

	p := pipeline.New(
		capture.NewExtractor(client, logger, 0),
		capture.NewClassifier(client, logger),
		inference.NewInferencer(inference.DefaultConfig(), nil, logger),
		scoring.NewScorer(scoring.DefaultConfig()),
		agenda.NewRouter(5),
		store, pipeline.NewMetrics(nil), logger,
	)

	engine := cluster.NewEngine(store, daycache.New[cluster.Set](time.Hour, 16), 5)
	predictor := focus.NewPredictor(store, store, store.Profiles(), engine,
		daycache.New[focus.Result](time.Hour, 16), focus.DefaultConfig(), logger)
	analyzer := domino.NewAnalyzer(store, engine, daycache.New[domino.Report](time.Hour, 16),
		domino.DefaultConfig(), logger)

	srv, err := NewServer(p, predictor, analyzer, logger, Config{})
	require.NoError(t, err)
	return srv, store
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCapture(t *testing.T) {
	srv, store := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/v1/capture",
		`{"user_id": "u1", "text": "buy milk\ncall dentist today"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "buy milk", resp.Tasks[0].RawContent)

	open, err := store.ListOpen(context.Background(), "u1", task.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestCapture_MissingUser(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/v1/capture", `{"text": "buy milk"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapture_EmptyText(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/v1/capture", `{"user_id": "u1", "text": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFocus_MissingUserReturnsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/v1/focus", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp focus.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Predictions)
	require.NotEmpty(t, resp.Reasoning)
	assert.Contains(t, resp.Reasoning[0], "no authenticated user")
}

func TestFocusFlow(t *testing.T) {
	srv, store := newTestServer(t)

	tk, err := task.New("u1", "Submit expense report", "")
	require.NoError(t, err)
	due := time.Now().Add(time.Hour)
	tk.DueAt = &due
	require.NoError(t, store.Insert(context.Background(), tk))

	rec := doRequest(srv, http.MethodGet, "/api/v1/focus?user_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp focus.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Predictions)
	assert.Equal(t, tk.ID, resp.Predictions[0].TaskID)

	rec = doRequest(srv, http.MethodPost, "/api/v1/focus/commit",
		`{"user_id": "u1", "task_id": "`+tk.ID+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, err := store.Get(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFocus)

	rec = doRequest(srv, http.MethodPost, "/api/v1/focus/invalidate", `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFocusCommit_UnknownTask(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/v1/focus/commit",
		`{"user_id": "u1", "task_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDomino(t *testing.T) {
	srv, store := newTestServer(t)

	primary, err := task.New("u1", "Draft proposal", "")
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), primary))
	review, err := task.New("u1", "Review proposal", "")
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), review))

	rec := doRequest(srv, http.MethodGet, "/api/v1/tasks/"+primary.ID+"/domino?user_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report domino.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Effects, 1)
	assert.Equal(t, review.ID, report.Effects[0].TaskID)
	assert.Contains(t, report.Summary, "unlocks 1 other task")
}

func TestDomino_MissingUserReturnsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/v1/tasks/some-id/domino", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var report domino.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Effects)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
