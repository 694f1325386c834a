package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"google.golang.org/api/googleapi"
)

// ClassifyGoogleAPIError maps a Drive API failure onto a stable error code.
// The original error stays reachable through errors.As.
func ClassifyGoogleAPIError(service string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if err == nil {
		return nil
	}
	if utils.ErrorCode(err) != "" {
		return err
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		return classifyTransportError(service, err, reqCtx, logger)
	}

	var code string
	var retryable bool

	switch apiErr.Code {
	case http.StatusBadRequest:
		code = utils.ErrCodeInvalidArgument
		for _, e := range apiErr.Errors {
			if e.Reason == "invalidPageToken" || e.Reason == "invalid" {
				code = utils.ErrCodeSyncTokenExpired
			}
		}
	case http.StatusUnauthorized:
		code = utils.ErrCodeAuthExpired
	case http.StatusForbidden:
		code = utils.ErrCodePermissionDenied
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "storageQuotaExceeded":
				code = utils.ErrCodeQuotaExceeded
			case "userRateLimitExceeded", "rateLimitExceeded":
				code = utils.ErrCodeRateLimited
				retryable = true
			case "dailyLimitExceeded":
				code = utils.ErrCodeRateLimited
			case "exportSizeLimitExceeded":
				code = utils.ErrCodeExportSizeLimit
			case "domainPolicy":
				code = utils.ErrCodePolicyViolation
			}
		}
	case http.StatusNotFound:
		code = utils.ErrCodeFileNotFound
	case http.StatusGone:
		code = utils.ErrCodeSyncTokenExpired
	case http.StatusTooManyRequests:
		code = utils.ErrCodeRateLimited
		retryable = true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = utils.ErrCodeNetworkError
		retryable = true
	default:
		code = utils.ErrCodeUnknown
		retryable = apiErr.Code >= 500
	}

	logger.Error("API error classified",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("retryable", retryable),
		logging.F("message", apiErr.Message),
		logging.F("traceId", reqCtx.TraceID),
		logging.F("service", service),
	)

	builder := utils.NewCLIError(code, apiErr.Message).
		WithHTTPStatus(apiErr.Code).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("service", service)

	if reqCtx.ConnectorID != "" {
		builder.WithContext("connectorId", reqCtx.ConnectorID)
	}
	if len(reqCtx.InvolvedFileIDs) > 0 {
		builder.WithContext("fileIds", reqCtx.InvolvedFileIDs)
	}

	if len(apiErr.Errors) > 0 {
		builder.WithDriveReason(apiErr.Errors[0].Reason)
		switch apiErr.Errors[0].Reason {
		case "userRateLimitExceeded", "rateLimitExceeded":
			builder.WithContext("suggestedAction", "wait before retrying")
		case "dailyLimitExceeded":
			builder.WithContext("suggestedAction", "quota will reset in 24 hours")
		case "domainPolicy":
			builder.WithContext("suggestedAction", "contact domain administrator")
		case "exportSizeLimitExceeded":
			builder.WithContext("suggestedAction", "document exceeds the 10MB export limit")
		}
	}

	switch code {
	case utils.ErrCodeAuthExpired:
		builder.WithContext("suggestedAction", "check the service account key and its scopes")
	case utils.ErrCodeFileNotFound:
		if reqCtx.DriveID != "" {
			builder.WithContext("searchDomain", "sharedDrive").
				WithContext("driveId", reqCtx.DriveID)
		}
		builder.WithContext("suggestedAction", "verify the id is correct and shared with the service account")
	case utils.ErrCodeSyncTokenExpired:
		builder.WithContext("suggestedAction", "run a full backfill to re-establish the change token")
	}

	if apiErr.Code >= 500 && apiErr.Code <= 504 {
		builder.WithContext("serverError", true)
	}

	return utils.WrapAppError(builder.Build(), err)
}

func classifyTransportError(service string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	code := utils.ErrCodeNetworkError
	retryable := true
	switch {
	case stderrors.Is(err, context.Canceled):
		code = utils.ErrCodeCancelled
		retryable = false
	case stderrors.Is(err, context.DeadlineExceeded):
		code = utils.ErrCodeTimeout
	}

	logger.Error("Non-API error",
		logging.F("error", err.Error()),
		logging.F("errorCode", code),
		logging.F("traceId", reqCtx.TraceID),
	)
	return utils.WrapAppError(utils.NewCLIError(code, err.Error()).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("service", service).
		Build(), err)
}

// IsRetryable reports whether a classified error may succeed if repeated
func IsRetryable(err error) bool {
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return appErr.CLIError.Retryable
	}
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
