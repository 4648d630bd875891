package auth

import "fmt"

// NetworkError means the grant endpoint could not be reached at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("auth endpoint unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the endpoint was reached but rejected the request or
// returned a body that does not match the credential shape. Body holds the
// response body (decoded JSON error text when the content type is JSON,
// raw text otherwise) for diagnostics.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth grant rejected: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("auth grant malformed response: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
