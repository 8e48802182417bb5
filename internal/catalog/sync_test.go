package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scriptedSource struct {
	mu    sync.Mutex
	steps []func() ([]string, error)
	calls int
}

func (s *scriptedSource) FetchNames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i]()
}

func names(n ...string) func() ([]string, error) {
	return func() ([]string, error) { return n, nil }
}

func failing(err error) func() ([]string, error) {
	return func() ([]string, error) { return nil, err }
}

type memoryStore struct {
	saved [][]string
	load  []string
}

func (m *memoryStore) Load(context.Context) ([]string, bool, error) {
	if m.load == nil {
		return nil, false, nil
	}
	return m.load, true, nil
}

func (m *memoryStore) Save(_ context.Context, n []string) error {
	m.saved = append(m.saved, n)
	return nil
}

func TestRefreshPublishesOnChange(t *testing.T) {
	src := &scriptedSource{steps: []func() ([]string, error){
		names("Acme", "Globex"),
		names("Acme", "Globex"),
		names("Globex", "Acme"),
	}}
	holder := NewHolder(nil)
	store := &memoryStore{}
	s := NewSyncer(src, holder, SyncOptions{Store: store})

	var notified [][2]int
	s.Subscribe(func(_ context.Context, prev, next *Catalog) {
		notified = append(notified, [2]int{prev.Len(), next.Len()})
	})

	changed, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"Acme", "Globex"}, holder.Load().Names())

	changed, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, changed, "reordering is a change")
	assert.Equal(t, []string{"Globex", "Acme"}, holder.Load().Names())

	assert.Equal(t, [][2]int{{0, 2}, {2, 2}}, notified)
	assert.Len(t, store.saved, 2)
	assert.False(t, s.LastSync().IsZero())
}

func TestRefreshFailureRetainsSnapshot(t *testing.T) {
	boom := errors.New("quota exceeded")
	src := &scriptedSource{steps: []func() ([]string, error){
		names("Acme"),
		failing(boom),
	}}
	holder := NewHolder(nil)
	var reported error
	s := NewSyncer(src, holder, SyncOptions{OnError: func(_ context.Context, err error) { reported = err }})

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	before := holder.Load()

	changed, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, changed)
	assert.ErrorIs(t, err, boom)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "names", fe.Op)
	assert.Same(t, before, holder.Load())
	assert.Equal(t, err, reported)
}

func TestRefreshAcceptsEmptyResult(t *testing.T) {
	src := &scriptedSource{steps: []func() ([]string, error){names("Acme"), names()}}
	holder := NewHolder(nil)
	s := NewSyncer(src, holder, SyncOptions{})

	_, _ = s.Refresh(context.Background())
	changed, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, holder.Load().Len())
}

func TestWarmSeedsEmptyHolder(t *testing.T) {
	store := &memoryStore{load: []string{"Acme", "Initech"}}
	holder := NewHolder(nil)
	s := NewSyncer(NameSourceFunc(func(context.Context) ([]string, error) { return nil, nil }), holder, SyncOptions{Store: store})

	require.NoError(t, s.Warm(context.Background()))
	assert.Equal(t, 2, holder.Load().Len())

	holder.Swap(New([]string{"Globex"}))
	store.load = []string{"Other"}
	require.NoError(t, s.Warm(context.Background()))
	assert.Equal(t, []string{"Globex"}, holder.Load().Names(), "warm start never overrides a live catalog")
}

func TestRunStopsOnCancel(t *testing.T) {
	fetched := make(chan struct{}, 16)
	src := NameSourceFunc(func(context.Context) ([]string, error) {
		select {
		case fetched <- struct{}{}:
		default:
		}
		return []string{"Acme"}, nil
	})
	holder := NewHolder(nil)
	s := NewSyncer(src, holder, SyncOptions{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-fetched:
		case <-time.After(time.Second):
			t.Fatal("sync loop did not fetch")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sync loop did not stop")
	}
	assert.Equal(t, []string{"Acme"}, holder.Load().Names())
}

func TestSubscriberMayUseSyncer(t *testing.T) {
	src := &scriptedSource{steps: []func() ([]string, error){names("Acme"), names("Globex")}}
	s := NewSyncer(src, NewHolder(nil), SyncOptions{})

	var late int
	s.Subscribe(func(context.Context, *Catalog, *Catalog) {
		assert.False(t, s.LastSync().IsZero())
		s.Subscribe(func(context.Context, *Catalog, *Catalog) { late++ })
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(context.Background())
		_, _ = s.Refresh(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh deadlocked in subscriber")
	}
	assert.Equal(t, 1, late)
}

type gatedSource struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) FetchNames(ctx context.Context) ([]string, error) {
	close(g.entered)
	<-g.release
	return []string{"Acme"}, nil
}

func TestLastSyncDoesNotWaitForFetch(t *testing.T) {
	src := &gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSyncer(src, NewHolder(nil), SyncOptions{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(context.Background())
	}()
	<-src.entered

	got := make(chan time.Time, 1)
	go func() { got <- s.LastSync() }()
	select {
	case ts := <-got:
		assert.True(t, ts.IsZero())
	case <-time.After(time.Second):
		t.Fatal("LastSync blocked behind an in-flight fetch")
	}
	close(src.release)
	<-done
	assert.False(t, s.LastSync().IsZero())
}
