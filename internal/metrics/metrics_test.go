package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveFetchAttempt(false, 0)
	r.ObserveFetchAttempt(true, 128)
	r.ObservePage(3)
	r.ObservePage(0)
	r.ObservePageSkipped()
	r.ObserveArticle(true)
	r.ObserveArticle(false)
	r.ObserveArticle(true)

	assert.InDelta(t, 1, testutil.ToFloat64(r.fetchAttempts.WithLabelValues(OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.fetchAttempts.WithLabelValues(OutcomeSuccess)), 0)
	assert.InDelta(t, 128, testutil.ToFloat64(r.fetchBytes), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.pagesTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.pagesSkipped), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.refsDiscovered), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.articlesTotal.WithLabelValues(ResultSucceeded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.articlesTotal.WithLabelValues(ResultFailed)), 0)
}

func TestNilRecorderIsSafe(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.ObserveFetchAttempt(true, 10)
	r.ObservePage(1)
	r.ObservePageSkipped()
	r.ObserveArticle(true)
	r.ObserveRun("crawl", time.Now(), time.Second)
	require.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.NotNil(t, r.Registry())
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveRun("download", time.Unix(1700000000, 0), 2*time.Second)
	r.ObserveArticle(true)

	path := filepath.Join(t.TempDir(), "archiver.prom")
	require.NoError(t, r.WriteTextfile(path))

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `archiver_last_run_timestamp_seconds{job="download"} 1.7e+09`))
	assert.True(t, strings.Contains(text, `archiver_articles_total{result="succeeded"} 1`))
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	t.Parallel()

	require.NoError(t, New().WriteTextfile(""))
}
