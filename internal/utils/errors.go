package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Configuration errors (10-19)
	ExitConfigInvalid = 10
	ExitAuthExpired   = 11
	// Drive errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitQuotaExceeded    = 22
	ExitSyncTokenExpired = 23
	// Network errors (30-39)
	ExitNetworkError = 30
	ExitTimeout      = 31
	ExitRateLimited  = 32
	// Validation errors (40-49)
	ExitInvalidArgument     = 40
	ExitUnknownMimeType     = 43
	ExitUnsupportedMimeType = 44
	// Ingestion state errors (50-59)
	ExitBaselineMissing   = 50
	ExitQueueWriteFailed  = 51
	ExitStoreError        = 52
	ExitConnectorNotFound = 53
	ExitResourceLimit     = 54
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeConfigInvalid       = "CONFIG_INVALID"
	ErrCodeAuthExpired         = "AUTH_EXPIRED"
	ErrCodeFileNotFound        = "FILE_NOT_FOUND"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeExportSizeLimit     = "EXPORT_SIZE_LIMIT"
	ErrCodeNetworkError        = "NETWORK_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInvalidArgument     = "INVALID_ARGUMENT"
	ErrCodeInvalidResponse     = "INVALID_RESPONSE"
	ErrCodeUnknownMimeType     = "UNKNOWN_MIME_TYPE"
	ErrCodeUnsupportedMimeType = "UNSUPPORTED_MIME_TYPE"
	ErrCodePolicyViolation     = "POLICY_VIOLATION"
	ErrCodeSyncTokenExpired    = "SYNC_TOKEN_EXPIRED"
	ErrCodeBaselineMissing     = "BASELINE_MISSING"
	ErrCodeQueueWriteFailed    = "QUEUE_WRITE_FAILED"
	ErrCodeStoreError          = "STORE_ERROR"
	ErrCodeConnectorNotFound   = "CONNECTOR_NOT_FOUND"
	ErrCodeConnectorExists     = "CONNECTOR_EXISTS"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeResourceLimit       = "RESOURCE_LIMIT"
	ErrCodeUnknown             = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDriveReason(reason string) *CLIErrorBuilder {
	b.err.DriveReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeConfigInvalid:       ExitConfigInvalid,
		ErrCodeAuthExpired:         ExitAuthExpired,
		ErrCodeFileNotFound:        ExitFileNotFound,
		ErrCodePermissionDenied:    ExitPermissionDenied,
		ErrCodeQuotaExceeded:       ExitQuotaExceeded,
		ErrCodeExportSizeLimit:     ExitQuotaExceeded,
		ErrCodeSyncTokenExpired:    ExitSyncTokenExpired,
		ErrCodeNetworkError:        ExitNetworkError,
		ErrCodeInvalidResponse:     ExitNetworkError,
		ErrCodeTimeout:             ExitTimeout,
		ErrCodeRateLimited:         ExitRateLimited,
		ErrCodeInvalidArgument:     ExitInvalidArgument,
		ErrCodeUnknownMimeType:     ExitUnknownMimeType,
		ErrCodeUnsupportedMimeType: ExitUnsupportedMimeType,
		ErrCodeBaselineMissing:     ExitBaselineMissing,
		ErrCodeQueueWriteFailed:    ExitQueueWriteFailed,
		ErrCodeStoreError:          ExitStoreError,
		ErrCodeConnectorNotFound:   ExitConnectorNotFound,
		ErrCodeConnectorExists:     ExitStoreError,
		ErrCodePolicyViolation:     ExitPermissionDenied,
		ErrCodeCancelled:           ExitTimeout,
		ErrCodeResourceLimit:       ExitResourceLimit,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	cause    error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// Unwrap exposes the underlying error, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps cause reachable through errors.Is/As
func WrapAppError(cliErr types.CLIError, cause error) *AppError {
	return &AppError{CLIError: cliErr, cause: cause}
}

// ErrorCode returns the code of the first AppError in err's chain, or ""
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.CLIError.Code
	}
	return ""
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
