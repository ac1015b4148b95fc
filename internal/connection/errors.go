package connection

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	// ErrInvalidParams is returned when connection parameters fail decoding or validation.
	ErrInvalidParams = apperrors.ErrInput.New("invalid connection parameters")

	// ErrProfile is returned when a profile file cannot be read or lacks the named profile.
	ErrProfile = apperrors.ErrInput.New("invalid connection profile")
)
