package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrRateLimit is returned when the vendor answered 429. RetryAfter comes
// from the Retry-After header when the vendor sent one.
type ErrRateLimit struct {
	Vendor     string
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm %s rate limited, retry after %s: %v", e.Vendor, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("llm %s rate limited: %v", e.Vendor, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is returned when the output is not valid JSON or does
// not satisfy the request schema. Content keeps the raw output for logs.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return "llm response invalid: " + e.Err.Error()
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers transport failures and non-429 error
// statuses. Status is zero when no HTTP answer was received.
type ErrProviderUnavailable struct {
	Vendor string
	Status int
	Err    error
}

func (e *ErrProviderUnavailable) Error() string {
	var b strings.Builder
	b.WriteString("llm provider unavailable")
	if e.Vendor != "" {
		b.WriteString(" (" + e.Vendor)
		if e.Status != 0 {
			b.WriteString(" " + strconv.Itoa(e.Status))
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is returned when output was cut at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("llm response truncated at max tokens after %d bytes", len(e.Content))
}

// classifyStatus maps a vendor HTTP answer onto the package error types.
// header may be nil.
func classifyStatus(vendor string, status int, header http.Header, err error) error {
	if status == http.StatusTooManyRequests {
		return &ErrRateLimit{Vendor: vendor, RetryAfter: retryAfter(header), Err: err}
	}
	return &ErrProviderUnavailable{Vendor: vendor, Status: status, Err: err}
}

// retryAfter reads a delta-seconds Retry-After header. HTTP dates are
// ignored and leave the backoff schedule in charge.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
