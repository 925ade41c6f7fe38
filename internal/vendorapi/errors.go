package vendorapi

import (
	"fmt"
	"time"
)

// RateLimitedError indicates the vendor rejected the call for exceeding the
// shared call budget. Retried with exponential backoff up to a small bound.
type RateLimitedError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("vendor rate limited action %q, retry after %s", e.Action, e.RetryAfter)
}

// TransientError indicates a network failure, timeout or vendor 5xx.
// Retried with a short fixed backoff.
type TransientError struct {
	Action string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient vendor failure on %q: %v", e.Action, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// VendorError indicates a domain-level rejection (unknown device, bad window).
// Never retried.
type VendorError struct {
	Action  string
	Status  int
	Message string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor rejected %q with status %d: %s", e.Action, e.Status, e.Message)
}
