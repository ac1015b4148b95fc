package resolver

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	ErrNoReference = apperrors.ErrInput.New("reference needs a uuid or a name")
	ErrNotFound    = apperrors.ErrInput.New("no entity matches the reference")
	ErrAmbiguous   = apperrors.ErrInput.New("more than one entity matches the reference")
	ErrInvalidIDs  = apperrors.ErrParse.New("invalid idempotence identifiers in response")
	ErrInvalidArgs = apperrors.ErrInput.New("invalid idempotence request")
)
