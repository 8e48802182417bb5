package chart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/chartbot/internal/catalog"
)

type blockingRows struct {
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func (b *blockingRows) FetchRows(ctx context.Context, name string) (Table, error) {
	b.calls.Add(1)
	if b.release != nil {
		<-b.release
	}
	if b.err != nil {
		return Table{}, b.err
	}
	return NewTable([][]string{{"Month", "Revenue"}, {"Jan", "10"}}), nil
}

type countingRenderer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRenderer) Render(ctx context.Context, t Table, c catalog.Category) ([]byte, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return pngStub, nil
}

func TestServiceCollapsesConcurrentRequests(t *testing.T) {
	rows := &blockingRows{release: make(chan struct{})}
	renderer := &countingRenderer{}
	svc := NewService(rows, renderer)

	const callers = 5
	var (
		wg      sync.WaitGroup
		results = make([][]byte, callers)
		errs    = make([]error, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Chart(context.Background(), "Acme", catalog.Revenue)
		}()
	}
	require.Eventually(t, func() bool { return rows.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(rows.release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, pngStub, results[i])
	}
	assert.LessOrEqual(t, rows.calls.Load(), int32(callers))
	assert.GreaterOrEqual(t, renderer.calls.Load(), int32(1))
}

func TestServiceSeparatesCategories(t *testing.T) {
	rows := &blockingRows{}
	renderer := &countingRenderer{}
	svc := NewService(rows, renderer)

	_, err := svc.Chart(context.Background(), "Acme", catalog.Revenue)
	require.NoError(t, err)
	_, err = svc.Chart(context.Background(), "Acme", catalog.Tax)
	require.NoError(t, err)
	assert.Equal(t, int32(2), rows.calls.Load())
}

func TestServicePropagatesErrors(t *testing.T) {
	fetchErr := &catalog.FetchError{Op: "rows", Source: "Acme", Err: errors.New("quota")}
	svc := NewService(&blockingRows{err: fetchErr}, &countingRenderer{})
	_, err := svc.Chart(context.Background(), "Acme", catalog.Profit)
	assert.ErrorIs(t, err, fetchErr)

	renderErr := &RenderError{Err: errors.New("bad gateway")}
	svc = NewService(&blockingRows{}, &countingRenderer{err: renderErr})
	_, err = svc.Chart(context.Background(), "Acme", catalog.Profit)
	var re *RenderError
	assert.ErrorAs(t, err, &re)
}
