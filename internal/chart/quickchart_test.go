package chart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/m3rciful/chartbot/internal/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

var pngStub = []byte("\x89PNG\r\n\x1a\nstub")

func newQuickChartServer(t *testing.T, createStatus int) (*httptest.Server, *createRequest) {
	t.Helper()
	var got createRequest
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/chart/create", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if createStatus != http.StatusOK {
			http.Error(w, "bad chart", createStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(createResponse{Success: true, URL: srv.URL + "/chart/render/abc"})
	})
	mux.HandleFunc("/chart/render/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngStub)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestQuickChartRender(t *testing.T) {
	srv, got := newQuickChartServer(t, http.StatusOK)
	q := NewQuickChart(QuickChartOptions{Endpoint: srv.URL + "/", Client: srv.Client()})

	img, err := q.Render(context.Background(), sampleTable(), catalog.Profit)
	require.NoError(t, err)
	assert.Equal(t, pngStub, img)

	assert.Equal(t, "bar", got.Chart.Type)
	assert.Equal(t, DefaultWidth, got.Width)
	assert.Equal(t, "png", got.Format)
	require.Len(t, got.Chart.Data.Datasets, 1)
	assert.Equal(t, "Profit", got.Chart.Data.Datasets[0].Label)
}

func TestQuickChartCreateFailure(t *testing.T) {
	srv, _ := newQuickChartServer(t, http.StatusBadRequest)
	q := NewQuickChart(QuickChartOptions{Endpoint: srv.URL, Client: srv.Client()})

	_, err := q.Render(context.Background(), sampleTable(), catalog.Tax)
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr), "got %v", err)
	assert.Equal(t, "create", renderErr.Stage)
	assert.Equal(t, http.StatusBadRequest, renderErr.Status)
	assert.Contains(t, renderErr.Error(), "bad chart")
}

func TestQuickChartMalformedSkipsService(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	q := NewQuickChart(QuickChartOptions{Endpoint: srv.URL, Client: srv.Client()})

	_, err := q.Render(context.Background(), NewTable([][]string{{"M", "Rev"}, {"Jan", "x"}}), catalog.Revenue)
	var malformed *MalformedDataError
	require.True(t, errors.As(err, &malformed))
	assert.Zero(t, calls.Load())
}

type stubRows struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
	table Table
	err   error
}

func (s *stubRows) FetchRows(ctx context.Context, name string) (Table, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.gate != nil {
		<-s.gate
	}
	return s.table, s.err
}

type stubRenderer struct {
	calls atomic.Int32
}

func (r *stubRenderer) Render(ctx context.Context, t Table, c catalog.Category) ([]byte, error) {
	r.calls.Add(1)
	if _, err := BuildConfig(t, c); err != nil {
		return nil, err
	}
	return pngStub, nil
}

func TestServiceSharesConcurrentRequests(t *testing.T) {
	rows := &stubRows{gate: make(chan struct{}), table: sampleTable()}
	renderer := &stubRenderer{}
	svc := NewService(rows, renderer)

	const n = 5
	var wg sync.WaitGroup
	results := make([][]byte, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := svc.Chart(context.Background(), "Acme", catalog.Revenue)
			assert.NoError(t, err)
			results[i] = img
		}(i)
	}
	// let the callers pile up on the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(rows.gate)
	wg.Wait()

	for _, img := range results {
		assert.Equal(t, pngStub, img)
	}
	assert.LessOrEqual(t, rows.calls, n)
	assert.Equal(t, int32(rows.calls), renderer.calls.Load())
}

func TestServiceReportsMalformedRows(t *testing.T) {
	boom := errors.New("sheet unavailable")
	svc := NewService(&stubRows{err: boom}, &stubRenderer{})
	_, err := svc.Chart(context.Background(), "Acme", catalog.Tax)
	require.ErrorIs(t, err, boom)

	for _, cell := range []string{"?", "NaN", "Inf"} {
		svc = NewService(&stubRows{table: NewTable([][]string{{"M", "Rev"}, {"Jan", cell}})}, &stubRenderer{})
		_, err = svc.Chart(context.Background(), "Acme", catalog.Revenue)
		var malformed *MalformedDataError
		require.True(t, errors.As(err, &malformed), "cell %q: %v", cell, err)
	}
}
