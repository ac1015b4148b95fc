// Package tasks waits for asynchronous server tasks. Mutating calls answer with
// a task uuid; the Poller reads the task with exponential backoff until it
// reaches a terminal state or the deadline passes.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/avast/retry-go/v4"
	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/entity"
	"github.com/rs/zerolog/log"
)

const (
	V3Resource = "/api/nutanix/v3/tasks"
	V4Resource = "/api/prism/v4.0/config/tasks"

	DefaultInterval    = time.Second
	DefaultMaxInterval = 5 * time.Second
	DefaultDeadline    = time.Minute
)

// Getter reads one task.
type Getter interface {
	Read(ctx context.Context, uuid string, opts ...entity.CallOption) (*entity.Response, error)
	IsV4() bool
}

// Poller waits for tasks.
type Poller struct {
	Client      Getter
	Interval    time.Duration
	MaxInterval time.Duration

	// Progress, when set, is called with every non-terminal read.
	Progress func(Task)
	// Journal gets a note for every non-terminal read. Nil discards.
	Journal httpclient.Journal
}

// NewPoller returns a poller reading tasks of the given API version.
func NewPoller(target entity.Target, transport httpclient.HTTPClientInterface, apiVersion string) *Poller {
	resource := V3Resource
	if v, err := semver.NewVersion(apiVersion); err == nil && v.Major() >= 4 {
		resource = V4Resource
	}
	return &Poller{
		Client:  entity.New(target, transport, resource, entity.WithAPIVersion(apiVersion)),
		Journal: httpclient.JournalOf(transport),
	}
}

var errPending = errors.New("task not finished")

// WaitForCompletion reads task uuid until it is terminal. FAILED and ABORTED
// tasks are returned together with an error carrying their error_detail. A
// deadline <= 0 means DefaultDeadline.
func (p *Poller) WaitForCompletion(ctx context.Context, uuid string, deadline time.Duration) (Task, error) {
	if uuid == "" {
		return Task{}, ErrNoTaskUUID
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	interval, maxInterval := p.Interval, p.MaxInterval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var last Task
	err := retry.Do(func() error {
		resp, err := p.Client.Read(waitCtx, uuid)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if p.Client.IsV4() {
			last = parseV4(resp)
		} else {
			last = parseV3(resp)
		}
		if last.UUID == "" {
			last.UUID = uuid
		}
		if !last.State.Terminal() {
			if p.Journal != nil {
				p.Journal.LogInfo("waiting for task", map[string]any{
					"task_uuid":           uuid,
					"status":              last.State.String(),
					"percentage_complete": last.Percent,
				})
			}
			if p.Progress != nil {
				p.Progress(last)
			}
			return errPending
		}
		return nil
	},
		retry.Context(waitCtx),
		retry.Attempts(0),
		retry.Delay(interval),
		retry.MaxDelay(maxInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errPending)
		}),
		retry.OnRetry(func(n uint, _ error) {
			log.Debug().Str("task_uuid", uuid).Uint("attempt", n).Str("state", last.State.String()).Int("percent", last.Percent).Msg("waiting for task")
		}),
	)

	if err != nil {
		if ctxErr := waitCtx.Err(); ctxErr != nil && ctx.Err() == nil {
			return last, ErrWaitTimeout.MsgErr(fmt.Sprintf("task %s still %s after %s", uuid, last.State, deadline), ctxErr).
				With(apperrors.DetailTaskUUID, uuid)
		}
		if ctx.Err() != nil {
			return last, ErrWaitTimeout.MsgErr(fmt.Sprintf("stopped waiting for task %s", uuid), ctx.Err()).
				With(apperrors.DetailTaskUUID, uuid)
		}
		return last, err
	}

	switch last.State {
	case StateFailed, StateAborted:
		detail := last.ErrorDetail
		if detail == "" {
			detail = last.Message
		}
		return last, ErrTaskFailed.New(fmt.Sprintf("task %s %s: %s", uuid, last.State, detail)).
			With(apperrors.DetailTaskUUID, uuid).
			With(apperrors.DetailMessage, detail)
	}
	log.Debug().Str("task_uuid", uuid).Msg("task succeeded")
	return last, nil
}
