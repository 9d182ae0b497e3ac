package workers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/services"
)

type fakeStore struct {
	got []services.IdentityRecord
}

func (f *fakeStore) UpsertIdentities(_ context.Context, recs []services.IdentityRecord) (int, error) {
	f.got = append(f.got, recs...)
	return len(recs), nil
}

func TestSyncOnceUpsertsAndAdvancesCursor(t *testing.T) {
	var sinces []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		sinces = append(sinces, r.URL.Query().Get("since"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"users":[{"id":"idp-1","username":"lerato","organisationId":"org-1","updatedAt":"2099-01-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	store := &fakeStore{}
	w := NewIdentitySyncWorker(store, srv.URL+"/users/changes", "svc-token", time.Minute)

	n, err := w.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.got, 1)
	assert.Equal(t, "lerato", store.got[0].Username)

	_, err = w.SyncOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sinces, 2)
	assert.Equal(t, "0001-01-01T00:00:00Z", sinces[0])
	assert.Equal(t, "2099-01-01T00:00:00Z", sinces[1])
}

func TestSyncOnceKeepsCursorOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	w := NewIdentitySyncWorker(&fakeStore{}, srv.URL, "bad", 0)
	_, err := w.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.True(t, w.since.IsZero())
}
