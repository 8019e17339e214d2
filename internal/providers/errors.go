package providers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HTTPError is a non-2xx response from a provider API.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// ParseRetryAfter reads a Retry-After header given in seconds.
// HTTP-date values and garbage yield zero.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
