// Package resolver turns user supplied references ({uuid} or {name}) into
// entity uuids and {kind, uuid} reference objects, and allocates idempotence
// identifiers for batch creation.
package resolver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/prismctl/prismctl/internal/entity"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Ref is a reference as users write it.
type Ref struct {
	UUID string `mapstructure:"uuid" json:"uuid,omitempty"`
	Name string `mapstructure:"name" json:"name,omitempty"`
}

// IsZero reports a reference with neither uuid nor name.
func (r Ref) IsZero() bool {
	return r.UUID == "" && r.Name == ""
}

func (r Ref) String() string {
	if r.UUID != "" {
		return "uuid " + r.UUID
	}
	return "name " + r.Name
}

// Lister is the part of an entity client the resolver needs.
type Lister interface {
	List(ctx context.Context, req entity.ListRequest, opts ...entity.CallOption) (*entity.Response, error)
	GetAll(ctx context.Context, req entity.ListRequest, opts ...entity.CallOption) ([]gjson.Result, error)
}

// ByNameLookup is implemented by collections that resolve names through a
// dedicated endpoint instead of a filtered list.
type ByNameLookup interface {
	LookupByName(ctx context.Context, name string) (string, error)
}

// ResolveUUID returns ref.UUID when set. Otherwise it lists the collection with
// filter name==<name> and returns the uuid of the single entity whose spec.name
// or status.name equals the name.
func ResolveUUID(ctx context.Context, l Lister, ref Ref) (string, error) {
	if ref.UUID != "" {
		return ref.UUID, nil
	}
	if ref.Name == "" {
		return "", ErrNoReference
	}

	req := entity.ListRequest{Filter: "name==" + entity.EscapeFilterValue(ref.Name), Length: 1}
	resp, err := l.List(ctx, req)
	if err != nil {
		return "", err
	}
	ents := resp.Get("entities").Array()
	if resp.Get("metadata.total_matches").Int() > int64(len(ents)) {
		// The server filter can match partially; look at every candidate.
		if ents, err = l.GetAll(ctx, entity.ListRequest{Filter: req.Filter}); err != nil {
			return "", err
		}
	}

	var ids []string
	for _, e := range ents {
		if e.Get("spec.name").String() == ref.Name || e.Get("status.name").String() == ref.Name {
			ids = append(ids, e.Get("metadata.uuid").String())
		}
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound.New(fmt.Sprintf("no entity named %q", ref.Name)).With("name", ref.Name)
	case 1:
		log.Debug().Str("name", ref.Name).Str("uuid", ids[0]).Msg("resolved reference")
		return ids[0], nil
	}
	return "", ErrAmbiguous.New(fmt.Sprintf("%d entities named %q", len(ids), ref.Name)).With("name", ref.Name)
}

// Resolver resolves references into one collection.
type Resolver struct {
	Kind   string
	Lister Lister
	ByName ByNameLookup
}

// UUID resolves ref, preferring the by-name endpoint when one is set.
func (r Resolver) UUID(ctx context.Context, ref Ref) (string, error) {
	if ref.UUID == "" && ref.Name != "" && r.ByName != nil {
		return r.ByName.LookupByName(ctx, ref.Name)
	}
	return ResolveUUID(ctx, r.Lister, ref)
}

// Reference resolves ref into a {kind, uuid} object.
func (r Resolver) Reference(ctx context.Context, ref Ref) (map[string]any, error) {
	id, err := r.UUID(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Reference(r.Kind, id), nil
}

// Reference builds a reference object.
func Reference(kind, uuid string) map[string]any {
	return map[string]any{"kind": kind, "uuid": uuid}
}

// EndpointLookup resolves names with GET base_url/name/<name>.
type EndpointLookup struct {
	Client *entity.Client
}

func (e EndpointLookup) LookupByName(ctx context.Context, name string) (string, error) {
	resp, err := e.Client.Read(ctx, "", entity.Endpoint("name/"+url.PathEscape(name)), entity.NoRaise())
	if err != nil {
		return "", err
	}
	id := resp.Get("metadata.uuid").String()
	if resp.StatusCode >= 300 || id == "" {
		return "", ErrNotFound.New(fmt.Sprintf("no entity named %q", name)).
			With("name", name).
			SetStatusCode(resp.StatusCode)
	}
	return id, nil
}
