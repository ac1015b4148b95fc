package httpclient

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	// ErrConnect is returned when no response was received: DNS, TCP or TLS failure.
	ErrConnect = apperrors.ErrConnection.New("unable to connect")

	// ErrRequestTimeout is returned when the per-call timeout elapsed.
	ErrRequestTimeout = apperrors.ErrTimeout.New("request timed out")

	// ErrBadRequest is returned when a request cannot be built.
	ErrBadRequest = apperrors.ErrInput.New("unable to build request")

	// ErrReadBody is returned when the response body could not be read.
	ErrReadBody = apperrors.ErrConnection.New("unable to read response body")

	// ErrInvalidProxy is returned for an unparsable proxy URL.
	ErrInvalidProxy = apperrors.ErrInput.New("invalid proxy url")
)
