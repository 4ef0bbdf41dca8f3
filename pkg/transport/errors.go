package transport

import "errors"

// Errors returned by the HTTP transport. Every error produced by Client also
// wraps simpleab.ErrTransport.
//
// Classification:
//   - ErrPermanentFailure: the service answered with a 4xx that retrying cannot fix
//   - ErrTemporaryFailure: network errors, 5xx and retryable 4xx; retried
//   - ErrTimeout: a single attempt exceeded the configured timeout
//   - ErrDecode: the service answered 2xx with a body that could not be decoded
var (
	ErrPermanentFailure = errors.New("permanent request failure")
	ErrTemporaryFailure = errors.New("temporary request failure")
	ErrTimeout          = errors.New("request timeout")
	ErrDecode           = errors.New("malformed response")
	ErrRetriesExhausted = errors.New("request failed after retries")
)
