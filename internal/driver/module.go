// Package driver runs one resource module invocation: it parses the input,
// picks an action, composes the spec, honours check-mode, calls the entity
// client, waits for the resulting task and assembles the Result.
package driver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/entity"
	"github.com/prismctl/prismctl/internal/specbuilder"
	"github.com/prismctl/prismctl/internal/tasks"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// NothingToChange is the message of an update whose composed spec equals the
// current one.
const NothingToChange = "Nothing to change"

// Env is what resource hooks get to work with.
type Env struct {
	Target    entity.Target
	Transport httpclient.HTTPClientInterface
	Client    *entity.Client
	Poller    *tasks.Poller
	Check     bool
}

// Resource describes one resource module.
type Resource[T any] struct {
	Name         string
	Kind         string
	ResourceType string
	APIVersion   string
	UUIDKey      string
	Schema       string
	Builder      specbuilder.Builder[T]

	// ReadOnly resources only support the list action.
	ReadOnly bool
	// ReadBeforeUpdate fetches the current entity and builds the update on top
	// of it. Updates that change nothing are then skipped.
	ReadBeforeUpdate bool
	// UpdateMethod defaults to PUT.
	UpdateMethod string
	// WaitTimeout bounds task waits when the input sets no timeout. Zero
	// means tasks.DefaultDeadline.
	WaitTimeout time.Duration

	// Prepare runs before the spec is built, typically to resolve references.
	// It must not use the network when env.Check is set.
	Prepare func(ctx context.Context, env Env, params map[string]any) (map[string]any, error)
	// AfterMutation runs after a successful create or update, before waiting.
	AfterMutation func(ctx context.Context, env Env, res *Result, params map[string]any) error
	// FromResponse turns a read into a spec. By default the body is decoded into
	// T, without status when T is a specbuilder.Doc.
	FromResponse func(resp *entity.Response) (T, error)
}

// Module runs invocations of one resource against one connection.
type Module[T any] struct {
	Resource Resource[T]
	Poller   *tasks.Poller

	env    Env
	schema *jsonschema.Schema
}

// New returns a module for r. It fails only when the resource schema is invalid.
func New[T any](r Resource[T], target entity.Target, transport httpclient.HTTPClientInterface) (*Module[T], error) {
	schema, err := compileSchema(r.Schema)
	if err != nil {
		return nil, err
	}
	if r.UUIDKey == "" && r.Kind != "" {
		r.UUIDKey = r.Kind + "_uuid"
	}
	if r.WaitTimeout <= 0 {
		r.WaitTimeout = tasks.DefaultDeadline
	}
	client := entity.New(target, transport, r.ResourceType, entity.WithAPIVersion(r.APIVersion))
	return &Module[T]{
		Resource: r,
		Poller:   tasks.NewPoller(target, transport, r.APIVersion),
		env:      Env{Target: target, Transport: transport, Client: client},
		schema:   schema,
	}, nil
}

// Client returns the entity client of the resource.
func (m *Module[T]) Client() *entity.Client {
	return m.env.Client
}

// Run executes in. The returned Result is never nil; when err is not nil the
// Result is the failure record for it.
func (m *Module[T]) Run(ctx context.Context, in Input) (*Result, error) {
	res := &Result{UUIDKey: m.Resource.UUIDKey}
	logger := log.With().Str("resource", m.Resource.Name).Str("action", in.Action.String()).Bool("check", in.Check).Logger()

	err := m.run(ctx, in, res)
	if err != nil {
		logger.Debug().Err(err).Msg("module failed")
		return res.Fail(err), err
	}
	logger.Debug().Bool("changed", res.Changed).Str("uuid", res.UUID).Str("task_uuid", res.TaskUUID).Msg("module finished")
	return res, nil
}

func (m *Module[T]) run(ctx context.Context, in Input, res *Result) error {
	if m.Resource.ReadOnly && in.Action != ActionList {
		return ErrReadOnly.New(fmt.Sprintf("%s cannot be %s", m.Resource.Name, in.Action))
	}
	if in.Action != ActionList {
		if err := validateParams(m.schema, in.Params); err != nil {
			return err
		}
	}

	env := m.env
	env.Check = in.Check
	env.Poller = m.Poller

	switch in.Action {
	case ActionAbsent:
		return m.absent(ctx, env, in, res)
	case ActionList:
		return m.list(ctx, env, in, res)
	}
	return m.present(ctx, env, in, res)
}

func (m *Module[T]) present(ctx context.Context, env Env, in Input, res *Result) error {
	params := in.Params
	if m.Resource.Prepare != nil {
		p, err := m.Resource.Prepare(ctx, env, params)
		if err != nil {
			return err
		}
		params = p
	}

	update := in.UUID != ""
	res.UUID = in.UUID

	var old *T
	if update && m.Resource.ReadBeforeUpdate && !in.Check {
		resp, err := env.Client.Read(ctx, in.UUID)
		if err != nil {
			return err
		}
		cur, err := m.fromResponse(resp)
		if err != nil {
			return err
		}
		old = &cur
	}

	spec, err := m.Resource.Builder.GetSpec(old, params)
	if err != nil {
		return err
	}

	if in.Check {
		res.Changed = true
		res.SetResponse(spec)
		return nil
	}

	if old != nil {
		same, err := Equal(*old, spec)
		if err != nil {
			return ErrInvalidInput.MsgErr("unable to compare specs", err)
		}
		if same {
			httpclient.JournalOf(env.Transport).LogInfo(NothingToChange, map[string]any{
				"resource": m.Resource.Name,
				"uuid":     in.UUID,
			})
			res.Msg = NothingToChange
			res.SetResponse(spec)
			return nil
		}
	}

	var resp *entity.Response
	if update {
		method := m.Resource.UpdateMethod
		if method == "" {
			method = http.MethodPut
		}
		resp, err = env.Client.Update(ctx, in.UUID, spec, entity.Method(method))
	} else {
		resp, err = env.Client.Create(ctx, spec)
	}
	if err != nil {
		return err
	}
	m.accepted(env, resp, res)

	if m.Resource.AfterMutation != nil {
		if err := m.Resource.AfterMutation(ctx, env, res, params); err != nil {
			return err
		}
	}
	return m.settle(ctx, env, in, res, true)
}

func (m *Module[T]) absent(ctx context.Context, env Env, in Input, res *Result) error {
	if in.UUID == "" {
		return ErrMissingUUID.New(fmt.Sprintf("uuid is required to delete %s", m.Resource.Name))
	}
	res.UUID = in.UUID
	if in.Check {
		res.Changed = true
		res.SetResponse(map[string]any{"metadata": map[string]any{"uuid": in.UUID, "kind": m.Resource.Kind}})
		return nil
	}

	resp, err := env.Client.Delete(ctx, in.UUID)
	if err != nil {
		return err
	}
	m.accepted(env, resp, res)
	return m.settle(ctx, env, in, res, false)
}

type listParams struct {
	Kind          string         `mapstructure:"kind"`
	Filter        string         `mapstructure:"filter"`
	Filters       map[string]any `mapstructure:"filters"`
	Offset        int            `mapstructure:"offset" validate:"gte=0"`
	Length        int            `mapstructure:"length" validate:"gte=0"`
	SortOrder     string         `mapstructure:"sort_order" validate:"omitempty,oneof=ASCENDING DESCENDING"`
	SortAttribute string         `mapstructure:"sort_attribute"`
	CustomFilter  map[string]any `mapstructure:"custom_filter"`
}

func (m *Module[T]) list(ctx context.Context, env Env, in Input, res *Result) error {
	if in.UUID != "" {
		res.UUID = in.UUID
		if in.Check {
			res.SetResponse(map[string]any{"metadata": map[string]any{"uuid": in.UUID, "kind": m.Resource.Kind}})
			return nil
		}
		resp, err := env.Client.Read(ctx, in.UUID)
		if err != nil {
			return err
		}
		res.StatusCode = resp.StatusCode
		res.SetResponse(resp)
		return nil
	}

	lp, err := specbuilder.Decode[listParams](in.Params)
	if err != nil {
		return ErrInvalidInput.MsgErr(err.Error(), err)
	}
	if lp.Kind == "" {
		lp.Kind = m.Resource.Kind
	}
	req := entity.ListRequest{
		Kind:          lp.Kind,
		Filter:        lp.Filter,
		Filters:       lp.Filters,
		Offset:        lp.Offset,
		Length:        lp.Length,
		SortOrder:     lp.SortOrder,
		SortAttribute: lp.SortAttribute,
		CustomFilter:  lp.CustomFilter,
	}
	if req.Filter == "" {
		req.Filter = req.Filters.String()
	}
	if in.Check {
		res.SetResponse(req)
		return nil
	}

	resp, err := env.Client.List(ctx, req)
	if err != nil {
		return err
	}
	res.StatusCode = resp.StatusCode
	res.SetResponse(resp)
	return nil
}

// accepted records a 2xx answer to a mutating call.
func (m *Module[T]) accepted(env Env, resp *entity.Response, res *Result) {
	res.Changed = true
	res.StatusCode = resp.StatusCode
	res.SetResponse(resp)
	if id := resp.Get("metadata.uuid").String(); id != "" {
		res.UUID = id
	}
	res.TaskUUID = tasks.ExtractTaskUUID(resp, env.Client.APIVersion())
}

// settle waits for the task of a mutation when asked to, then reads the
// resource back.
func (m *Module[T]) settle(ctx context.Context, env Env, in Input, res *Result, readBack bool) error {
	if !in.Wait || res.TaskUUID == "" {
		return nil
	}
	task, err := m.Poller.WaitForCompletion(ctx, res.TaskUUID, m.deadline(in))
	if err != nil {
		return err
	}
	if res.UUID == "" {
		for _, e := range task.Entities {
			if e.Kind == m.Resource.Kind {
				res.UUID = e.UUID
				break
			}
		}
	}
	if !readBack || res.UUID == "" {
		return nil
	}
	resp, err := env.Client.Read(ctx, res.UUID)
	if err != nil {
		return err
	}
	res.StatusCode = resp.StatusCode
	res.SetResponse(resp)
	return nil
}

// deadline is the task wait of in: its timeout, or the resource default.
func (m *Module[T]) deadline(in Input) time.Duration {
	if in.Timeout > 0 {
		return in.Timeout
	}
	return m.Resource.WaitTimeout
}

func (m *Module[T]) fromResponse(resp *entity.Response) (T, error) {
	if m.Resource.FromResponse != nil {
		return m.Resource.FromResponse(resp)
	}
	var out T
	if d, ok := any(&out).(*specbuilder.Doc); ok {
		*d = specbuilder.NewDoc(string(resp.JSON))
		if err := d.Delete("status"); err != nil {
			return out, ErrInvalidInput.MsgErr("unable to strip status", err)
		}
		return out, nil
	}
	if err := resp.Decode(&out); err != nil {
		return out, ErrInvalidInput.MsgErr("unable to decode current spec", err)
	}
	return out, nil
}
