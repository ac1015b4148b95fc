package driver

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	ErrInvalidInput = apperrors.ErrInput.New("invalid module input")
	ErrSchema       = apperrors.ErrInput.New("parameters do not match the resource schema")
	ErrMissingUUID  = apperrors.ErrInput.New("uuid is required")
	ErrReadOnly     = apperrors.ErrInput.New("resource is read-only")
	ErrBadSchema    = apperrors.New("invalid resource schema")
)
