package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/resources"
	"github.com/rs/zerolog/log"
)

// invoke runs one module invocation of the named resource. Everything that
// goes wrong once the resource is known ends up in the returned record.
func invoke(ctx context.Context, name string, params map[string]any) (*driver.Result, error) {
	r, ok := resources.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q, expected one of: %s", name, strings.Join(resources.Names(), ", "))
	}
	failed := func(err error) (*driver.Result, error) {
		res := &driver.Result{UUIDKey: r.Kind + "_uuid"}
		return res.Fail(err), nil
	}

	t, err := connect(params)
	if err != nil {
		return failed(err)
	}
	m, err := driver.New(r, t.conn, t.transport)
	if err != nil {
		return failed(err)
	}
	in, err := driver.ParseInput(params, opts.check)
	if err != nil {
		return failed(err)
	}
	log.Debug().Str("resource", name).Str("action", in.Action.String()).Msg("invoking module")
	res, _ := m.Run(ctx, in)
	return res, nil
}
