package checkout

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fallbackPattern = regexp.MustCompile(`^ERR-2026-[0-9A-F]{6}$`)

type sequenceSource struct {
	mu     sync.Mutex
	values []string
	errs   []error
	calls  int
}

func (s *sequenceSource) Next(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.values) {
		return s.values[len(s.values)-1], nil
	}
	return s.values[i], nil
}

type memoryNumbers struct {
	mu    sync.Mutex
	taken map[string]bool
	err   error
}

func newMemoryNumbers(taken ...string) *memoryNumbers {
	m := &memoryNumbers{taken: map[string]bool{}}
	for _, n := range taken {
		m.taken[n] = true
	}
	return m
}

func (m *memoryNumbers) DisplayNumberTaken(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.taken[number], nil
}

func (m *memoryNumbers) commit(number string) {
	m.mu.Lock()
	m.taken[number] = true
	m.mu.Unlock()
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestAllocate_FirstCandidateFree(t *testing.T) {
	alloc := NewAllocator(&sequenceSource{values: []string{"ZM-000042"}}, WithRetryDelay(time.Millisecond))

	got := alloc.Allocate(context.Background(), newMemoryNumbers())

	assert.Equal(t, Allocation{Number: "ZM-000042", Attempts: 1}, got)
}

func TestAllocate_RetriesUntilFree(t *testing.T) {
	source := &sequenceSource{values: []string{"ZM-000001", "ZM-000002", "ZM-000003"}}
	alloc := NewAllocator(source, WithRetryDelay(time.Millisecond))

	got := alloc.Allocate(context.Background(), newMemoryNumbers("ZM-000001", "ZM-000002"))

	assert.Equal(t, "ZM-000003", got.Number)
	assert.Equal(t, 3, got.Attempts)
	assert.False(t, got.Fallback)
	assert.Equal(t, 3, source.calls)
}

func TestAllocate_WaitsBetweenAttempts(t *testing.T) {
	source := &sequenceSource{values: []string{"ZM-000001", "ZM-000002"}}
	alloc := NewAllocator(source, WithRetryDelay(20*time.Millisecond))

	start := time.Now()
	got := alloc.Allocate(context.Background(), newMemoryNumbers("ZM-000001"))

	assert.Equal(t, "ZM-000002", got.Number)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestAllocate_FallbackAfterExhaustion(t *testing.T) {
	hook := 0
	source := &sequenceSource{values: []string{"ZM-000001"}}
	alloc := NewAllocator(source,
		WithRetryDelay(time.Millisecond),
		WithClock(fixedClock),
		WithFallbackHook(func() { hook++ }),
	)

	got := alloc.Allocate(context.Background(), newMemoryNumbers("ZM-000001"))

	assert.True(t, got.Fallback)
	assert.Equal(t, DefaultMaxAttempts, got.Attempts)
	assert.Regexp(t, fallbackPattern, got.Number)
	assert.Equal(t, 1, hook)
	assert.Equal(t, DefaultMaxAttempts, source.calls)
}

func TestAllocate_SourceErrorsCountAsAttempts(t *testing.T) {
	boom := errors.New("connection refused")
	source := &sequenceSource{
		values: []string{"", "", "ZM-000007"},
		errs:   []error{boom, boom},
	}
	alloc := NewAllocator(source, WithRetryDelay(time.Millisecond))

	got := alloc.Allocate(context.Background(), newMemoryNumbers())

	assert.Equal(t, Allocation{Number: "ZM-000007", Attempts: 3}, got)
}

func TestAllocate_CheckerErrorNeverFails(t *testing.T) {
	checker := newMemoryNumbers()
	checker.err = errors.New("tx aborted")
	alloc := NewAllocator(&sequenceSource{values: []string{"ZM-000001"}}, WithRetryDelay(time.Millisecond), WithClock(fixedClock))

	got := alloc.Allocate(context.Background(), checker)

	assert.True(t, got.Fallback)
	assert.Regexp(t, fallbackPattern, got.Number)
}

func TestAllocate_CancelledContextFallsBackWithoutWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := NewAllocator(&sequenceSource{values: []string{"ZM-000001"}}, WithRetryDelay(time.Hour), WithClock(fixedClock))

	done := make(chan Allocation, 1)
	go func() { done <- alloc.Allocate(ctx, newMemoryNumbers("ZM-000001")) }()

	select {
	case got := <-done:
		assert.True(t, got.Fallback)
		assert.Equal(t, 1, got.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("Allocate a attendu le délai malgré le contexte annulé")
	}
}

func TestAllocate_ConcurrentSameCandidate(t *testing.T) {
	// Pire cas : la source donne la même valeur à tout le monde.
	// Le verrou simule des transactions qui se succèdent.
	const workers = 8
	store := newMemoryNumbers()
	alloc := NewAllocator(&sequenceSource{values: []string{"ZM-000100"}}, WithRetryDelay(time.Millisecond), WithClock(fixedClock))

	var (
		txLock  sync.Mutex
		wg      sync.WaitGroup
		results = make([]Allocation, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txLock.Lock()
			defer txLock.Unlock()
			a := alloc.Allocate(context.Background(), store)
			store.commit(a.Number)
			results[i] = a
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	regular := 0
	for _, r := range results {
		require.False(t, seen[r.Number], "numéro en double: %s", r.Number)
		seen[r.Number] = true
		if !r.Fallback {
			regular++
			assert.Equal(t, "ZM-000100", r.Number)
		} else {
			assert.Regexp(t, fallbackPattern, r.Number)
		}
	}
	assert.Equal(t, 1, regular)
}

func TestFormatAndParseDisplayNumber(t *testing.T) {
	assert.Equal(t, "ZM-000042", FormatDisplayNumber("ZM", 42))
	assert.Equal(t, "ZM-1234567", FormatDisplayNumber("ZM", 1234567))

	seq, ok := ParseDisplayNumber("ZM", "ZM-000042")
	assert.True(t, ok)
	assert.Equal(t, int64(42), seq)

	for _, bad := range []string{"ERR-2026-ABCDEF", "ZM-", "ZM-12a", "XX-000001", "ZM--1"} {
		_, ok := ParseDisplayNumber("ZM", bad)
		assert.False(t, ok, bad)
	}
}
