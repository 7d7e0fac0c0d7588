package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	path        string
	contentType string
	body        string
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(data)})
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func TestS3StorePutReturnsPresignedURL(t *testing.T) {
	srv, puts := newFakeS3(t)
	store, err := NewS3Store(context.Background(), Options{
		Bucket:    "attachments",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		URLExpiry: time.Minute,
	})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "requests/req-1/f-1/quote.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, srv.URL+"/attachments/requests/req-1/f-1/quote.txt?"))
	require.Contains(t, url, "X-Amz-Expires=60")

	recorded := puts()
	require.Len(t, recorded, 1)
	require.Equal(t, "/attachments/requests/req-1/f-1/quote.txt", recorded[0].path)
	require.Equal(t, "text/plain", recorded[0].contentType)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), Options{Region: "us-east-1"})
	require.Error(t, err)
}
