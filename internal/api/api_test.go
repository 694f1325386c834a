package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func retryableErr() error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeNetworkError, "backend").WithRetryable(true).Build())
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(3), nil, func() (string, error) {
		calls++
		if calls < 3 {
			return "", retryableErr()
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), nil, func() (int, error) {
		calls++
		return 0, utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound, "gone").Build())
	})
	assert.True(t, utils.HasCode(err, utils.ErrCodeFileNotFound))
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), nil, func() (int, error) {
		calls++
		return 0, retryableErr()
	})
	assert.True(t, utils.HasCode(err, utils.ErrCodeNetworkError))
	assert.Equal(t, 3, calls)
}

func TestRetry_ZeroPolicyIsSingleAttempt(t *testing.T) {
	calls := 0
	_, _ = Retry(context.Background(), RetryPolicy{}, nil, func() (int, error) {
		calls++
		return 0, retryableErr()
	})
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	_, err := Retry(ctx, policy, nil, func() (int, error) {
		cancel()
		return 0, retryableErr()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond} {
		d := p.backoff(attempt, errors.New("x"))
		assert.GreaterOrEqual(t, d, base*3/4, "attempt %d", attempt)
		assert.LessOrEqual(t, d, base*5/4, "attempt %d", attempt)
	}

	capped := p.backoff(10, errors.New("x"))
	assert.LessOrEqual(t, capped, time.Second*5/4)

	withHeader := &googleapi.Error{Code: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"7"}}}
	assert.Equal(t, time.Second, p.backoff(0, withHeader), "Retry-After is capped at MaxDelay")

	p.MaxDelay = time.Minute
	assert.Equal(t, 7*time.Second, p.backoff(0, withHeader))
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{"600", time.Duration(utils.MaxRetryDelayMs) * time.Millisecond},
	}
	for _, tt := range tests {
		apiErr := &googleapi.Error{Header: http.Header{}}
		if tt.value != "" {
			apiErr.Header.Set("Retry-After", tt.value)
		}
		assert.Equal(t, tt.want, retryAfter(apiErr), "Retry-After %q", tt.value)
	}
	assert.Equal(t, time.Duration(0), retryAfter(&googleapi.Error{}))
}

func TestRateLimiter_RecordRateLimitHoldsBack(t *testing.T) {
	limiter := NewRateLimiter(1000, 10)
	limiter.RecordRateLimit(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)

	fresh := NewRateLimiter(0, 0)
	require.NoError(t, fresh.Wait(context.Background()))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	service, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewClient(service, NewRateLimiter(1000, 1000), nil)
}

func TestExecute_ClassifiesAndRecordsRateLimit(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"slow down","errors":[{"reason":"rateLimitExceeded"}]}}`))
	})

	reqCtx := NewRequestContext("org-1", "c1", "", types.RequestTypeListOrSearch)
	_, err := Execute(context.Background(), client, reqCtx, func() (*drive.FileList, error) {
		return client.Service().Files.List().Do()
	})
	assert.True(t, utils.HasCode(err, utils.ErrCodeRateLimited))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "Execute makes exactly one call")

	var apiErr *googleapi.Error
	assert.True(t, errors.As(err, &apiErr), "cause stays reachable")

	client.limiter.mu.Lock()
	retryAt := client.limiter.retryAt
	client.limiter.mu.Unlock()
	assert.True(t, retryAt.After(time.Now()))
}

func TestExecute_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"startPageToken":"42"}`))
	})

	reqCtx := NewRequestContext("org-1", "c1", "", types.RequestTypeChanges)
	token, err := Execute(context.Background(), client, reqCtx, func() (*drive.StartPageToken, error) {
		return client.Service().Changes.GetStartPageToken().Do()
	})
	require.NoError(t, err)
	assert.Equal(t, "42", token.StartPageToken)
}

func TestNewRequestContext(t *testing.T) {
	reqCtx := NewRequestContext("org-1", "c1", "drive-9", types.RequestTypeExport)
	assert.NotEmpty(t, reqCtx.TraceID)
	assert.Equal(t, "drive-9", reqCtx.DriveID)

	WithFileIDs(reqCtx, "f1", "f2")
	WithParentIDs(reqCtx, "p1")
	assert.Equal(t, []string{"f1", "f2"}, reqCtx.InvolvedFileIDs)
	assert.Equal(t, []string{"p1"}, reqCtx.InvolvedParentIDs)
}

func TestConvertFile(t *testing.T) {
	assert.Nil(t, ConvertFile(nil))

	summary := ConvertFile(&drive.File{
		Id:       "f1",
		Name:     "a.pdf",
		MimeType: "application/pdf",
		Parents:  []string{"folder-root"},
		Size:     12,
		DriveId:  "drive-9",
	})
	require.NotNil(t, summary)
	assert.Equal(t, "f1", summary.ID)
	assert.Equal(t, "drive-9", summary.DriveID)
	assert.Equal(t, int64(12), summary.Size)
}
