package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func TestRetrierSucceedsFirstTry(t *testing.T) {
	t.Parallel()

	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, "http://x/1").Return([]byte("ok"), nil).Once()

	r := NewRetrier(f, RetryConfig{Attempts: 3}, nil, nil)
	body, err := r.Fetch(context.Background(), "http://x/1")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	f.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestRetrierRecoversAfterFailures(t *testing.T) {
	t.Parallel()

	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, "http://x/1").Return(nil, errors.New("boom")).Twice()
	f.On("Fetch", mock.Anything, "http://x/1").Return([]byte("late"), nil).Once()

	rec := metrics.New()
	r := NewRetrier(f, RetryConfig{Attempts: 5}, nil, rec)
	body, err := r.Fetch(context.Background(), "http://x/1")
	require.NoError(t, err)
	assert.Equal(t, "late", string(body))
	f.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestRetrierExhausts(t *testing.T) {
	t.Parallel()

	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, "http://x/1").Return(nil, errors.New("boom"))

	r := NewRetrier(f, RetryConfig{}, nil, nil)
	_, err := r.Fetch(context.Background(), "http://x/1")
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "boom")
	f.AssertNumberOfCalls(t, "Fetch", DefaultAttempts)
}

func TestRetrierSleepsBeforeEachAttempt(t *testing.T) {
	t.Parallel()

	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, "u").Return(nil, errors.New("boom"))

	r := NewRetrier(f, RetryConfig{Attempts: 3, Delay: time.Second}, nil, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := r.Fetch(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, slept)
}

func TestRetrierStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, "u").Run(func(mock.Arguments) { cancel() }).Return(nil, errors.New("boom"))

	r := NewRetrier(f, RetryConfig{Attempts: 5}, nil, nil)
	_, err := r.Fetch(ctx, "u")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	f.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
