package resources

import (
	"context"
	"fmt"
	"maps"

	"github.com/prismctl/prismctl/internal/common/uuid"
	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/entity"
	"github.com/prismctl/prismctl/internal/resolver"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

// refParam says how to resolve one reference parameter.
type refParam struct {
	Param      string
	Kind       string
	Collection string
	ByName     bool
}

var (
	clusterRef = refParam{Param: "cluster", Kind: "cluster", Collection: "clusters", ByName: true}
	subnetRef  = refParam{Kind: "subnet", Collection: "subnets"}
	vpcRef     = refParam{Param: "vpc", Kind: "vpc", Collection: "vpcs"}
	projectRef = refParam{Param: "project", Kind: "project", Collection: "projects"}
)

// toRef accepts {uuid}, {name} or a bare string, which is a uuid when it parses
// as one and a name otherwise.
func toRef(v any) (resolver.Ref, error) {
	if s, ok := v.(string); ok {
		if uuid.IsValid(s) {
			return resolver.Ref{UUID: s}, nil
		}
		return resolver.Ref{Name: s}, nil
	}
	ref, err := specbuilder.Decode[resolver.Ref](v)
	if err != nil {
		return ref, err
	}
	if ref.IsZero() {
		return ref, resolver.ErrNoReference
	}
	return ref, nil
}

// reference resolves v into a {kind, uuid} object. In check-mode names are
// kept as {kind, name} since nothing may be looked up.
func reference(ctx context.Context, env driver.Env, p refParam, v any) (map[string]any, error) {
	ref, err := toRef(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Kind, err)
	}
	if ref.UUID != "" {
		return resolver.Reference(p.Kind, ref.UUID), nil
	}
	if env.Check {
		return map[string]any{"kind": p.Kind, "name": ref.Name}, nil
	}
	client := entity.New(env.Target, env.Transport, V3+"/"+p.Collection)
	r := resolver.Resolver{Kind: p.Kind, Lister: client}
	if p.ByName {
		r.ByName = resolver.EndpointLookup{Client: client}
	}
	return r.Reference(ctx, ref)
}

// resolveRefs returns a copy of params with each present reference parameter
// replaced by its resolved reference object.
func resolveRefs(ctx context.Context, env driver.Env, params map[string]any, refs ...refParam) (map[string]any, error) {
	out := maps.Clone(params)
	for _, p := range refs {
		v, ok := out[p.Param]
		if !ok || specbuilder.Empty(v) {
			continue
		}
		ref, err := reference(ctx, env, p, v)
		if err != nil {
			return nil, err
		}
		out[p.Param] = ref
	}
	return out, nil
}
