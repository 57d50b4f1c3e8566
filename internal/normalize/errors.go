package normalize

import (
	"fmt"

	"github.com/rohmanhakim/silent-crawler/pkg/failure"
)

type NormalizationErrorCause string

const (
	// ErrCauseEmptyHref indicates the href was empty or whitespace only.
	ErrCauseEmptyHref NormalizationErrorCause = "empty href"

	// ErrCauseFragmentOnly indicates the href points to a fragment of the current page.
	ErrCauseFragmentOnly NormalizationErrorCause = "fragment only"

	// ErrCauseUnsupportedScheme indicates a scheme other than http or https,
	// including javascript:, mailto:, tel: and data:.
	ErrCauseUnsupportedScheme NormalizationErrorCause = "unsupported scheme"

	// ErrCauseUnparsable indicates the href could not be parsed as a URL reference.
	ErrCauseUnparsable NormalizationErrorCause = "unparsable href"

	// ErrCauseMissingHost indicates the resolved URL has no host.
	ErrCauseMissingHost NormalizationErrorCause = "missing host"
)

type NormalizationError struct {
	Message   string
	Retryable bool
	Cause     NormalizationErrorCause
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization error: %s: %s", e.Cause, e.Message)
}

// Severity is always recoverable: a rejected href never affects the rest of the crawl.
func (e *NormalizationError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
