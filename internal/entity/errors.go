package entity

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	// ErrFetch is returned for a response with status >= 300.
	ErrFetch = apperrors.ErrProtocol.New("failed fetching URL")

	// ErrRefused is returned when the server refused a request because of the
	// state of the target (conflicts, failed preconditions).
	ErrRefused = apperrors.ErrPrecondition.New("request refused by server")

	// ErrConvert is returned when a JSON response was required but the body
	// was not JSON.
	ErrConvert = apperrors.ErrParse.New("failed to convert API response to json")

	// ErrInvalidCall is returned for arguments the client cannot send.
	ErrInvalidCall = apperrors.ErrInput.New("invalid entity call")
)
