package api

import "fmt"

// RejectedError is a non-2xx response from the signup service carrying
// the server's detail message (activity full, already registered, not
// registered, and so on). Detail may be empty; callers substitute a
// generic fallback when presenting it.
type RejectedError struct {
	StatusCode int
	Detail     string
}

// RejectionDetail returns the server's detail message, possibly empty.
func (e *RejectedError) RejectionDetail() string { return e.Detail }

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request rejected with status %d: %s", e.StatusCode, e.Detail)
}
