package proxy_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/photorest/packages/proxy"
	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

func openStore(t *testing.T, path string) *proxy.Store {
	t.Helper()
	store, err := proxy.OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndList(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "recordings.db"))
	ctx := context.Background()

	ts := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)
	recs := []proxy.Recording{
		{Timestamp: ts, Method: "GET", URL: "http://api.example.com/services/rest/?method=flickr.test.null", Host: "api.example.com", User: "alice", Authenticated: true, StatusCode: 200, Duration: 15 * time.Millisecond},
		{Timestamp: ts.Add(time.Second), Method: "CONNECT", URL: "api.example.com:443", Host: "api.example.com:443", StatusCode: 407},
	}
	for _, rec := range recs {
		require.NoError(t, store.Save(ctx, rec))
	}

	got, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(recs[0].Timestamp))
	got[0].Timestamp, got[1].Timestamp = recs[0].Timestamp, recs[1].Timestamp
	assert.Equal(t, recs, got)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "GET", limited[0].Method)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_ReopenKeepsRecordings(t *testing.T) {
	path := "sqlite://" + filepath.Join(t.TempDir(), "recordings.db")

	store, err := proxy.OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), proxy.Recording{Timestamp: time.Now(), Method: "POST", URL: "u", Host: "h", StatusCode: 200}))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	n, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_EmptyPath(t *testing.T) {
	_, err := proxy.OpenStore("sqlite:")
	assert.Error(t, err)
}

func TestRecorder_PersistsToStore(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "recordings.db"))
	target := startMock(t)
	_, host, port := startProxy(t, proxy.WithStore(store))

	tr, err := rest.New(target.URL, rest.WithLogger(zerolog.Nop()), rest.WithProxy(host, port))
	require.NoError(t, err)

	_, err = tr.Get(context.Background(), tr.Path(), []rest.Parameter{rest.NewParameter("method", "flickr.test.null")})
	require.NoError(t, err)

	var stored []proxy.Recording
	require.Eventually(t, func() bool {
		stored, err = store.List(context.Background(), 0)
		return err == nil && len(stored) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "GET", stored[0].Method)
	assert.Equal(t, 200, stored[0].StatusCode)
	assert.Contains(t, stored[0].URL, "method=flickr.test.null")
}
