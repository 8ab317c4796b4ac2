package apcaccess

import "fmt"

// IOError is the only failure the package reports. It wraps the
// underlying transport error (refused, timeout, reset, ...).
type IOError struct {
	Op   string // dial, write or read
	Addr string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("apcupsd %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying error was a timeout
func (e *IOError) Timeout() bool {
	t, ok := e.Err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
