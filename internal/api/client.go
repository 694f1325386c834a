package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/dl-alexandre/gdrv-ingest/internal/errors"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Client wraps the Drive service with request limiting, logging and error
// classification. It holds no per-connector state and is safe to share.
type Client struct {
	service *drive.Service
	limiter *RateLimiter
	logger  logging.Logger
}

// NewClient creates a new Drive API client. A nil limiter uses the defaults.
func NewClient(service *drive.Service, limiter *RateLimiter, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if limiter == nil {
		limiter = NewRateLimiter(0, 0)
	}
	return &Client{
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

// NewRequestContext creates a new request context with trace ID
func NewRequestContext(orgID, connectorID, driveID string, requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		OrgID:             orgID,
		ConnectorID:       connectorID,
		DriveID:           driveID,
		InvolvedFileIDs:   []string{},
		InvolvedParentIDs: []string{},
		RequestType:       requestType,
		TraceID:           uuid.New().String(),
	}
}

// WithFileIDs adds file IDs to the request context
func WithFileIDs(reqCtx *types.RequestContext, fileIDs ...string) *types.RequestContext {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileIDs...)
	return reqCtx
}

// WithParentIDs adds parent IDs to the request context
func WithParentIDs(reqCtx *types.RequestContext, parentIDs ...string) *types.RequestContext {
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentIDs...)
	return reqCtx
}

// Execute runs one Drive call. Failures come back classified as *utils.AppError;
// repeating the call is left to the caller (see Retry).
func Execute[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	var zero T

	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("orgId", reqCtx.OrgID),
		logging.F("connectorId", reqCtx.ConnectorID),
		logging.F("driveId", reqCtx.DriveID),
	)

	if err := client.limiter.Wait(ctx); err != nil {
		return zero, apierrors.ClassifyGoogleAPIError("drive", err, reqCtx, logger)
	}

	start := time.Now()
	result, err := fn()
	duration := time.Since(start)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			client.limiter.RecordRateLimit(retryAfter(apiErr))
		}
		logger.Warn("API operation failed",
			logging.F("requestType", reqCtx.RequestType),
			logging.F("duration_ms", duration.Milliseconds()),
			logging.F("error", err.Error()),
		)
		return zero, apierrors.ClassifyGoogleAPIError("drive", err, reqCtx, logger)
	}

	logger.Debug("API operation completed",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("duration_ms", duration.Milliseconds()),
	)
	return result, nil
}

// retryAfter reads a Retry-After header given in seconds, capped at MaxRetryDelayMs
func retryAfter(apiErr *googleapi.Error) time.Duration {
	if apiErr.Header == nil {
		return 0
	}
	value := apiErr.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	delay := time.Duration(seconds) * time.Second
	if maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond; delay > maxDelay {
		return maxDelay
	}
	return delay
}

// Service returns the underlying Drive service
func (c *Client) Service() *drive.Service {
	return c.service
}
