package gcs_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/article-archiver/internal/storage/gcs"
)

func newTestMirror(t *testing.T, handler http.Handler, cfg gcs.Config) *gcs.Mirror {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcsstorage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	mirror, err := gcs.New(client, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	return mirror
}

func TestNewValidates(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: "b"})
	assert.Error(t, err)

	client, err := gcsstorage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close() //nolint:errcheck // test cleanup
	_, err = gcs.New(client, gcs.Config{})
	assert.Error(t, err)
}

func TestMirrorPutObject(t *testing.T) {
	payload := []byte("gzipped-bytes")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/archive-bucket/o")
		assert.Equal(t, "articles/0001/42.html.gz", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), string(payload))
		assert.Contains(t, string(body), "contentEncoding")

		fmt.Fprintln(w, `{ "name": "articles/0001/42.html.gz" }`)
	})

	mirror := newTestMirror(t, handler, gcs.Config{Bucket: "archive-bucket", Prefix: "/articles/"})
	uri, err := mirror.PutObject(context.Background(), "0001/42.html.gz", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "gs://archive-bucket/articles/0001/42.html.gz", uri)
}

func TestMirrorPutObjectError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	mirror := newTestMirror(t, handler, gcs.Config{Bucket: "archive-bucket"})
	_, err := mirror.PutObject(context.Background(), "0000/1.html.gz", "", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
}

func TestMirrorPutObjectEmptyPath(t *testing.T) {
	mirror := newTestMirror(t, http.NotFoundHandler(), gcs.Config{Bucket: "b"})
	_, err := mirror.PutObject(context.Background(), " ", "", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	mirror := newTestMirror(t, http.NotFoundHandler(), gcs.Config{Bucket: "b"})
	assert.Equal(t, "0000/1.html.gz", mirror.ObjectName("0000/1.html.gz"))
}

func TestDialFailsOnMissingBucket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := gcs.Dial(context.Background(), gcs.Config{Bucket: "missing"}, zap.NewNop(),
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	assert.Error(t, err)
}
