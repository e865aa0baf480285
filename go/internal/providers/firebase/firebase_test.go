package firebase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeDatabase() http.Handler {
	var mu sync.Mutex
	nodes := map[string]string{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if v, ok := nodes[r.URL.Path]; ok {
				_, _ = io.WriteString(w, v)
				return
			}
			_, _ = io.WriteString(w, "null")
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			nodes[r.URL.Path] = string(body)
			_, _ = w.Write(body)
		}
	})
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New(config.Firebase{})
	assert.Error(t, err)

	_, err = New(config.Firebase{URL: "not a url"})
	assert.Error(t, err)
}

func TestStoreOverFirebase(t *testing.T) {
	srv := httptest.NewServer(newFakeDatabase())
	defer srv.Close()

	backend, err := New(config.Firebase{URL: srv.URL + "/cookies", Timeout: time.Second})
	require.NoError(t, err)

	store := base.NewStore(Name, backend, "savegame")
	ctx := context.Background()

	ready := store.Init(ctx)
	<-ready.Done()
	require.NoError(t, ready.Err())

	assert.True(t, store.TestConnection(ctx))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := models.NewSaveRecord("Mi4wNDh8fDE2", 1700000000000)
	require.NoError(t, store.Save(ctx, rec))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestInitFailsOnUnreachableDatabase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	backend, err := New(config.Firebase{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	ready := base.NewStore(Name, backend, "savegame").Init(context.Background())
	<-ready.Done()
	assert.Error(t, ready.Err())
}
