package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation            = errors.New("input malformed")
	ErrNotFound              = errors.New("no data found")
	ErrDownload              = errors.New("download failed")
	ErrFitNonConvergent      = errors.New("fit did not converge")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrInterrupted           = errors.New("interrupted")
	ErrConfiguration         = errors.New("configuration error")
	ErrTransient             = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category names the failure class of err for log fields and the processed
// index. Unknown errors report "internal".
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "input-malformed"
	case errors.Is(err, ErrNotFound):
		return "no-data-found"
	case errors.Is(err, ErrDownload):
		return "download-failed"
	case errors.Is(err, ErrFitNonConvergent):
		return "fit-non-convergent"
	case errors.Is(err, ErrClassifierUnavailable):
		return "classifier-unavailable"
	case errors.Is(err, ErrInterrupted):
		return "user-interrupt"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

// Fatal reports whether err should abort a batch rather than skip the item.
// Only configuration problems stop a run; everything else is logged and the
// loop moves on.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
