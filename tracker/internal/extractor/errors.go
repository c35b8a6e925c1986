package extractor

import "fmt"

// ProfileNotFoundError is returned when the display name never renders:
// the username does not resolve to a profile.
type ProfileNotFoundError struct {
	Username string
	Cause    error
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("extractor: profile %q not found: %v", e.Username, e.Cause)
}

func (e *ProfileNotFoundError) Unwrap() error { return e.Cause }
