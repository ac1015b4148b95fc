package inventory

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	// ErrInvalidFilter is returned for a filter expression that is not key==value or key!=value.
	ErrInvalidFilter = apperrors.ErrInput.New("invalid inventory filter")
)
