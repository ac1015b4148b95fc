package tasks

import "github.com/prismctl/prismctl/internal/common/apperrors"

var (
	// ErrTaskFailed is returned when a task ends FAILED or ABORTED. The task's
	// error_detail is part of the message.
	ErrTaskFailed = apperrors.ErrTask.New("task did not succeed")

	// ErrWaitTimeout is returned when the deadline passes first. The task keeps
	// running on the server.
	ErrWaitTimeout = apperrors.ErrTimeout.New("timed out waiting for task")

	ErrNoTaskUUID = apperrors.ErrInput.New("task uuid is empty")
)
