package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectbot/internal/models"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, "u1", s.UserID)

	s.SelectFunction(models.FunctionItems)
	require.NoError(t, store.Save(ctx, s))

	// Mutating the caller's copy does not leak into the store.
	s.Function = models.FunctionCycles

	got, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.FunctionItems, got.Function)

	require.NoError(t, store.Delete(ctx, "u1"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_IdleExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &models.Session{UserID: "old", Function: models.FunctionItems}))
	now = now.Add(8 * time.Minute)
	require.NoError(t, store.Save(ctx, &models.Session{UserID: "fresh", Function: models.FunctionItems}))
	now = now.Add(5 * time.Minute)

	old, err := store.Load(ctx, "old")
	require.NoError(t, err)
	assert.True(t, old.IsEmpty(), "expired session loads as new")

	fresh, err := store.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.FunctionItems, fresh.Function)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_NoExpiryWithoutTimeout(t *testing.T) {
	store := NewMemoryStore(0)
	require.NoError(t, store.Save(context.Background(), &models.Session{UserID: "u1", Function: models.FunctionItems}))
	store.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }

	assert.Equal(t, 0, store.Sweep())
	s, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.FunctionItems, s.Function)
}

type mapKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]time.Duration
	err  error
	// getErr fails reads only.
	getErr error
}

func newMapKV() *mapKV {
	return &mapKV{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (m *mapKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], m.err
}

func (m *mapKV) Set(key string, val []byte, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = val
	m.ttl[key] = exp
	return nil
}

func (m *mapKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return m.err
}

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	store := NewKVStore(kv, 30*time.Minute)

	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())

	s.SelectFunction(models.FunctionCycles)
	s.SelectDomain(models.DomainLivestock)
	s.BusinessType = models.BusinessLivestockInstantSale
	s.ConsecutiveFailures = 2
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, 30*time.Minute, kv.ttl[sessionKeyPrefix+"u1"])

	got, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.BusinessLivestockInstantSale, got.BusinessType)
	assert.Equal(t, 2, got.ConsecutiveFailures)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, "u1"))
	got, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestKVStore_Errors(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	store := NewKVStore(kv, 0)

	kv.data[sessionKeyPrefix+"bad"] = []byte("{not json")
	_, err := store.Load(ctx, "bad")
	assert.Error(t, err)

	kv.err = errors.New("connection refused")
	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, kv.err)
	assert.ErrorIs(t, store.Save(ctx, models.NewSession("u1")), kv.err)
}

func TestEngine_SurvivesSessionStoreFailure(t *testing.T) {
	kv := newMapKV()
	kv.err = errors.New("connection refused")
	e := NewEngine(Options{Sessions: NewKVStore(kv, 0), Lookup: panickingLookup{}})

	reply := e.Handle(context.Background(), models.Request{UserID: "u1", Utterance: "검사항목"})
	assert.Equal(t, errorReply(), reply)
}

func TestEngine_FailedLoadKeepsStoredSession(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	sessions := NewKVStore(kv, 0)
	e := NewEngine(Options{Sessions: sessions, Lookup: panickingLookup{}})

	stored := models.NewSession("u1")
	stored.SelectFunction(models.FunctionItems)
	stored.SelectDomain(models.DomainFood)
	require.NoError(t, sessions.Save(ctx, stored))
	before := append([]byte(nil), kv.data[sessionKeyPrefix+"u1"]...)

	kv.getErr = errors.New("i/o timeout")
	reply := e.Handle(ctx, models.Request{UserID: "u1", Utterance: "소시지"})
	assert.Equal(t, errorReply(), reply)
	assert.Equal(t, before, kv.data[sessionKeyPrefix+"u1"], "stored session must not be touched")

	kv.getErr = nil
	got, err := sessions.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.FunctionItems, got.Function)
	assert.Equal(t, models.DomainFood, got.Domain)
}

func TestUserLocks_SerializesAndCleansUp(t *testing.T) {
	locks := newUserLocks()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.size())
}

func TestUserLocks_IndependentUsers(t *testing.T) {
	locks := newUserLocks()
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for another user blocked")
	}
}
