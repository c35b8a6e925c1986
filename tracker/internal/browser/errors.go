package browser

import (
	"fmt"
	"time"
)

// NavigationError is returned when the page cannot be reached within the
// navigation budget.
type NavigationError struct {
	URL   string
	Cause error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("browser: navigate %s: %v", e.URL, e.Cause)
}

func (e *NavigationError) Unwrap() error { return e.Cause }

// ElementNotFoundError is returned when a selector does not match within
// its wait budget.
type ElementNotFoundError struct {
	Selector string
	Timeout  time.Duration
	Cause    error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("browser: element %q not found within %v: %v", e.Selector, e.Timeout, e.Cause)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Cause }
