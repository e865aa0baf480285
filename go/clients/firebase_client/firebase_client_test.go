package firebase_client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDatabase struct {
	mu    sync.Mutex
	nodes map[string]string
	auth  string
}

func (f *fakeDatabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.auth != "" && r.URL.Query().Get(AuthParam) != f.auth {
		http.Error(w, `{"error":"Permission denied"}`, http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		value, ok := f.nodes[r.URL.Path]
		if !ok {
			_, _ = io.WriteString(w, "null")
			return
		}
		_, _ = io.WriteString(w, value)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.nodes[r.URL.Path] = string(body)
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestPutThenGet(t *testing.T) {
	db := &fakeDatabase{nodes: map[string]string{}, auth: "secret"}
	srv := httptest.NewServer(db)
	defer srv.Close()

	client := NewFirebaseClient(srv.URL+"/", "secret", time.Second)
	ctx := context.Background()

	_, found, err := client.GetValue(ctx, "savegame")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.PutValue(ctx, "savegame", []byte(`{"game":"abc","time":1}`)))

	value, found, err := client.GetValue(ctx, "savegame")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"game":"abc","time":1}`, string(value))
	assert.Contains(t, db.nodes, "/savegame.json")
}

func TestRejectedAuthSurfacesStatus(t *testing.T) {
	db := &fakeDatabase{nodes: map[string]string{}, auth: "secret"}
	srv := httptest.NewServer(db)
	defer srv.Close()

	client := NewFirebaseClient(srv.URL, "wrong", time.Second)

	err := client.PutValue(context.Background(), "savegame", []byte(`"x"`))
	require.Error(t, err)

	var statusErr *clients.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	assert.Error(t, client.Ping(context.Background()))
}

func TestPing(t *testing.T) {
	db := &fakeDatabase{nodes: map[string]string{}}
	srv := httptest.NewServer(db)
	defer srv.Close()

	client := NewFirebaseClient(srv.URL, "", time.Second)
	assert.NoError(t, client.Ping(context.Background()))
}
