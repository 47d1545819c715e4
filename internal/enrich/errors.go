package enrich

import (
	"fmt"
	"time"
)

// TimeoutError reports that a single enrichment attempt exceeded its bound.
// It is terminal for the attempt; recovery is an operator-initiated re-run.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %ds; try a re-run later", int(e.Elapsed.Seconds()))
}

// EnrichmentError reports a non-success, non-rate-limit backend response.
type EnrichmentError struct {
	StatusCode int
	Message    string
}

func (e *EnrichmentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("enrichment failed with status %d", e.StatusCode)
}
