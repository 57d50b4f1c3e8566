package robots

import (
	"fmt"

	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCausePreFetchFailure      RobotsErrorCause = "failed to build robots.txt request"
	ErrCauseHttpFetchFailure     RobotsErrorCause = "failed to fetch robots.txt"
	ErrCauseHttpTooManyRequests  RobotsErrorCause = "rate limited"
	ErrCauseHttpServerError      RobotsErrorCause = "server error"
	ErrCauseHttpUnexpectedStatus RobotsErrorCause = "unexpected status"
)

// RobotsError reports an unavailable robots.txt. The host is then crawled
// without restriction, so the error is always recoverable.
type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}

// mapRobotsErrorToMetadataCause maps robots-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseHttpFetchFailure, ErrCauseHttpServerError:
		return metadata.CauseNetworkFailure
	case ErrCauseHttpTooManyRequests:
		return metadata.CausePolicyDisallow
	default:
		return metadata.CauseUnknown
	}
}
