package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"google.golang.org/api/googleapi"
)

func testRequestContext() *types.RequestContext {
	return &types.RequestContext{
		OrgID:           "org-1",
		ConnectorID:     "c1",
		DriveID:         "drive-9",
		InvolvedFileIDs: []string{"f1"},
		RequestType:     types.RequestTypeGetByID,
		TraceID:         "trace-1",
	}
}

func apiError(code int, reason string) *googleapi.Error {
	apiErr := &googleapi.Error{Code: code, Message: http.StatusText(code)}
	if reason != "" {
		apiErr.Errors = []googleapi.ErrorItem{{Reason: reason}}
	}
	return apiErr
}

func TestClassifyGoogleAPIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"bad request", apiError(400, "badRequest"), utils.ErrCodeInvalidArgument, false},
		{"invalid page token", apiError(400, "invalidPageToken"), utils.ErrCodeSyncTokenExpired, false},
		{"unauthorized", apiError(401, "authError"), utils.ErrCodeAuthExpired, false},
		{"forbidden", apiError(403, "insufficientFilePermissions"), utils.ErrCodePermissionDenied, false},
		{"storage quota", apiError(403, "storageQuotaExceeded"), utils.ErrCodeQuotaExceeded, false},
		{"user rate limit", apiError(403, "userRateLimitExceeded"), utils.ErrCodeRateLimited, true},
		{"daily limit", apiError(403, "dailyLimitExceeded"), utils.ErrCodeRateLimited, false},
		{"export size", apiError(403, "exportSizeLimitExceeded"), utils.ErrCodeExportSizeLimit, false},
		{"domain policy", apiError(403, "domainPolicy"), utils.ErrCodePolicyViolation, false},
		{"not found", apiError(404, "notFound"), utils.ErrCodeFileNotFound, false},
		{"gone", apiError(410, ""), utils.ErrCodeSyncTokenExpired, false},
		{"too many requests", apiError(429, ""), utils.ErrCodeRateLimited, true},
		{"internal", apiError(500, ""), utils.ErrCodeNetworkError, true},
		{"unavailable", apiError(503, "backendError"), utils.ErrCodeNetworkError, true},
		{"teapot", apiError(418, ""), utils.ErrCodeUnknown, false},
		{"canceled", context.Canceled, utils.ErrCodeCancelled, false},
		{"deadline", context.DeadlineExceeded, utils.ErrCodeTimeout, true},
		{"transport", stderrors.New("connection reset by peer"), utils.ErrCodeNetworkError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyGoogleAPIError("drive", tt.err, testRequestContext(), logging.NewNoOpLogger())
			if got := utils.ErrorCode(err); got != tt.code {
				t.Fatalf("code = %q, want %q", got, tt.code)
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
			if !stderrors.Is(err, tt.err) {
				t.Errorf("original error not reachable from %v", err)
			}
		})
	}
}

func TestClassifyGoogleAPIError_Context(t *testing.T) {
	err := ClassifyGoogleAPIError("drive", apiError(404, "notFound"), testRequestContext(), logging.NewNoOpLogger())

	var appErr *utils.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("expected *utils.AppError, got %T", err)
	}
	cliErr := appErr.CLIError
	if cliErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d", cliErr.HTTPStatus)
	}
	if cliErr.DriveReason != "notFound" {
		t.Errorf("DriveReason = %q", cliErr.DriveReason)
	}
	if cliErr.Context["traceId"] != "trace-1" {
		t.Errorf("traceId = %v", cliErr.Context["traceId"])
	}
	if cliErr.Context["connectorId"] != "c1" {
		t.Errorf("connectorId = %v", cliErr.Context["connectorId"])
	}
	if cliErr.Context["searchDomain"] != "sharedDrive" {
		t.Errorf("searchDomain = %v", cliErr.Context["searchDomain"])
	}
}

func TestClassifyGoogleAPIError_PassesThroughClassified(t *testing.T) {
	if ClassifyGoogleAPIError("drive", nil, testRequestContext(), logging.NewNoOpLogger()) != nil {
		t.Fatal("nil error should stay nil")
	}

	coded := utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidResponse, "empty").Build())
	err := ClassifyGoogleAPIError("drive", coded, testRequestContext(), logging.NewNoOpLogger())
	if err != error(coded) {
		t.Errorf("classified error was rewrapped: %v", err)
	}
}

func TestIsRetryable_RawAPIError(t *testing.T) {
	if !IsRetryable(apiError(502, "")) {
		t.Error("502 should be retryable")
	}
	if IsRetryable(apiError(404, "")) {
		t.Error("404 should not be retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
