package youtubeapi

import (
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrorClass represents whether an API error should be retried or not.
type ErrorClass int

const (
	// ErrorClassRetryable indicates the operation should be retried (transient errors).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the operation should not be retried (permanent errors).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	case ErrorClassUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// ClassifyError sorts YouTube Data API errors into retryable vs fatal.
//
// Fatal errors (non-retryable):
// - Invalid or revoked API key (400, 401)
// - Forbidden without quota involvement (403 except quotaExceeded/rateLimitExceeded)
// - Resource not found (404)
//
// Retryable errors (transient):
// - Quota and rate limiting (403 quotaExceeded/rateLimitExceeded, 429)
// - Server errors (500, 502, 503, 504)
// - Network failures (connection reset, timeout, DNS)
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 400, 401, 404:
			return ErrorClassFatal
		case 403:
			if isQuotaError(gerr) {
				return ErrorClassRetryable
			}
			return ErrorClassFatal
		case 429, 500, 502, 503, 504:
			return ErrorClassRetryable
		}
	}

	lower := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection reset",
		"connection refused",
		"connection timed out",
		"timeout",
		"temporary failure in name resolution",
		"no route to host",
		"network unreachable",
		"eof",
		"broken pipe",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassRetryable
		}
	}

	// Unknown errors are treated as retryable to avoid giving up too early.
	return ErrorClassRetryable
}

func isQuotaError(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(gerr.Message), "quota")
}

// IsRetryableError checks if an error should trigger retry logic.
func IsRetryableError(err error) bool {
	return ClassifyError(err) == ErrorClassRetryable
}

// IsFatalError checks if an error should not be retried.
func IsFatalError(err error) bool {
	return ClassifyError(err) == ErrorClassFatal
}
