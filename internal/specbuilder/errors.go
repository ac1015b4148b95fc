package specbuilder

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	ErrBuild  = apperrors.ErrInput.New("unable to build spec")
	ErrDecode = apperrors.ErrInput.New("invalid parameter value")
	ErrCopy   = apperrors.ErrInput.New("unable to copy spec")
)
