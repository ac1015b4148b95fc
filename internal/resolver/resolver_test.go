package resolver

import (
	"context"
	"net/http"
	"testing"

	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/entity"
	"github.com/prismctl/prismctl/internal/prismtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*prismtest.Server, *entity.Client, *entity.Client) {
	t.Helper()
	srv := prismtest.NewServer()
	tr, _ := srv.Client()
	subnets := entity.New(prismtest.Conn(), tr, prismtest.APIPrefix+"/subnets")
	clusters := entity.New(prismtest.Conn(), tr, prismtest.APIPrefix+"/clusters")
	return srv, subnets, clusters
}

func TestResolveUUIDDirect(t *testing.T) {
	srv, subnets, _ := setup(t)
	id, err := ResolveUUID(context.Background(), subnets, Ref{UUID: "u-1", Name: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
	assert.Empty(t, srv.Requests())
}

func TestResolveUUIDByName(t *testing.T) {
	srv, subnets, _ := setup(t)
	ids := srv.SeedNamed("subnets", "vlan", 3)

	id, err := ResolveUUID(context.Background(), subnets, Ref{Name: "vlan-1"})
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	calls := srv.RequestsTo(http.MethodPost, "/subnets/list")
	require.Len(t, calls, 1)
	assert.Equal(t, "name==vlan-1", calls[0].Get("filter").String())
	assert.Equal(t, int64(1), calls[0].Get("length").Int())
}

func TestResolveUUIDNameWithSeparators(t *testing.T) {
	srv, subnets, _ := setup(t)
	srv.SeedNamed("subnets", "a", 1)
	want := srv.Seed("subnets", map[string]any{"spec": map[string]any{"name": "a;b,c"}})[0]

	id, err := ResolveUUID(context.Background(), subnets, Ref{Name: "a;b,c"})
	require.NoError(t, err)
	assert.Equal(t, want, id)

	calls := srv.RequestsTo(http.MethodPost, "/subnets/list")
	require.Len(t, calls, 1)
	assert.Equal(t, "name==a%3Bb%2Cc", calls[0].Get("filter").String())
}

func TestResolveUUIDErrors(t *testing.T) {
	srv, subnets, _ := setup(t)
	ctx := context.Background()
	srv.SeedNamed("subnets", "dup", 1)
	srv.SeedNamed("subnets", "dup", 1)

	_, err := ResolveUUID(ctx, subnets, Ref{})
	assert.ErrorIs(t, err, ErrNoReference)

	_, err = ResolveUUID(ctx, subnets, Ref{Name: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, apperrors.KindInput, apperrors.KindOf(err))

	_, err = ResolveUUID(ctx, subnets, Ref{Name: "dup-0"})
	assert.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "2 entities")
}

func TestResolverByNameEndpoint(t *testing.T) {
	srv, subnets, clusters := setup(t)
	ids := srv.SeedNamed("clusters", "pe", 2)
	ctx := context.Background()

	r := Resolver{Kind: "cluster", Lister: clusters, ByName: EndpointLookup{Client: clusters}}
	ref, err := r.Reference(ctx, Ref{Name: "pe-1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"kind": "cluster", "uuid": ids[1]}, ref)
	assert.Len(t, srv.RequestsTo(http.MethodGet, "/clusters/name/pe-1"), 1)
	assert.Empty(t, srv.RequestsTo(http.MethodPost, "/clusters/list"))

	_, err = r.UUID(ctx, Ref{Name: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	plain := Resolver{Kind: "subnet", Lister: subnets}
	_, err = plain.UUID(ctx, Ref{Name: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllocate(t *testing.T) {
	srv, _, _ := setup(t)
	tr, _ := srv.Client()
	c := NewIdempotenceClient(prismtest.Conn(), tr, "client-1")

	ids, err := c.Allocate(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	calls := srv.RequestsTo(http.MethodPost, "/idempotence_identifiers")
	require.Len(t, calls, 1)
	assert.Equal(t, "client-1", calls[0].Get("client_identifier").String())
	assert.Equal(t, int64(3), calls[0].Get("count").Int())

	_, err = c.Allocate(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestAllocateRejectsBadLists(t *testing.T) {
	short := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prismtest.WriteJSON(w, http.StatusOK, map[string]any{"uuid_list": []string{"not-a-uuid"}})
	})
	tr, _ := httpclient.NewTestClient(prismtest.Conn(), short)

	c := NewIdempotenceClient(prismtest.Conn(), tr, "")
	assert.NotEmpty(t, c.ClientID)

	_, err := c.Allocate(context.Background(), 2)
	assert.ErrorIs(t, err, ErrInvalidIDs)
	_, err = c.Allocate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidIDs)
	assert.Equal(t, apperrors.KindParse, apperrors.KindOf(err))
}

func TestSaltedIsStable(t *testing.T) {
	srv, _, _ := setup(t)
	tr, _ := srv.Client()
	c := NewIdempotenceClient(prismtest.Conn(), tr, "")
	names := []string{"alice", "bob"}

	remote, err := c.Salted(context.Background(), names)
	require.NoError(t, err)
	again, err := c.Salted(context.Background(), names)
	require.NoError(t, err)
	assert.Equal(t, remote, again)
	assert.Equal(t, SaltedIDs(names), remote)
	assert.NotEqual(t, remote[0], remote[1])

	_, err = c.Salted(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgs)
}
