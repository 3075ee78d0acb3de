package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/swagger2dcat/config"
)

// testStoreContract exercises the behaviour every backend shares.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := NewID()

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, key, []byte(`{"v":1}`)))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))

	require.NoError(t, s.Put(ctx, key, []byte(`{"v":2}`)))
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))

	type draft struct {
		Title string `json:"title"`
	}
	require.NoError(t, PutJSON(ctx, s, key, draft{Title: "Pets"}))
	var d draft
	require.NoError(t, GetJSON(ctx, s, key, &d))
	assert.Equal(t, "Pets", d.Title)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, key), "deleting a missing key")
}

func TestMemoryStoreContract(t *testing.T) {
	testStoreContract(t, NewMemoryStore(0))
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	now = now.Add(59 * time.Minute)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestMemoryStoreSweepsOnPut(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abandoned", []byte("v")))
	require.NoError(t, s.Put(ctx, "recent", []byte("v")))
	require.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Hour)
	require.NoError(t, s.Put(ctx, "fresh", []byte("v")))

	assert.Equal(t, 1, s.Len())
	_, err := s.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestGetJSONInvalid(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", []byte("not json")))

	var v map[string]any
	err := GetJSON(ctx, s, "k", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal k")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, config.StoreConfig{Backend: BackendRedis, Redis: config.RedisConfig{URL: "://bad"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
