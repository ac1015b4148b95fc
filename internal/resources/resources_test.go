package resources

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/prismtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func module(t *testing.T, srv *prismtest.Server, name string) *driver.Module[Spec] {
	t.Helper()
	r, ok := Lookup(name)
	require.True(t, ok, name)
	tr, _ := srv.Client()
	m, err := driver.New(r, prismtest.Conn(), tr)
	require.NoError(t, err)
	m.Poller.Interval = time.Millisecond
	m.Poller.MaxInterval = 5 * time.Millisecond
	return m
}

func run(t *testing.T, m *driver.Module[Spec], params map[string]any, check bool) (*driver.Result, error) {
	t.Helper()
	in, err := driver.ParseInput(params, check)
	require.NoError(t, err)
	return m.Run(context.Background(), in)
}

func TestRegistry(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"clusters", "images", "routing_policies", "subnets", "tasks", "users", "vms", "vpcs"}, names)

	srv := prismtest.NewServer()
	for _, name := range names {
		m := module(t, srv, name)
		assert.Equal(t, "https://"+prismtest.Host+V3+"/"+name, m.Client().BaseURL(), name)
		want := time.Minute
		if name == "images" {
			want = ImageWaitTimeout
		}
		assert.Equal(t, want, m.Resource.WaitTimeout, name)
	}
	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestVMCreateResolvesReferences(t *testing.T) {
	srv := prismtest.NewServer()
	clusters := srv.Seed("clusters", map[string]any{"spec": map[string]any{"name": "c1"}})
	subnets := srv.SeedNamed("subnets", "net", 2)
	m := module(t, srv, "vms")

	res, err := run(t, m, map[string]any{
		"name":      "vm-1",
		"cluster":   "c1",
		"memory_gb": 2,
		"vcpus":     2,
		"networks": []any{
			map[string]any{"subnet": "net-1", "private_ip": "10.0.0.5"},
			map[string]any{"subnet": map[string]any{"uuid": subnets[0]}, "is_connected": false},
		},
	}, false)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "vm_uuid", res.UUIDKey)
	require.NotEmpty(t, res.UUID)

	posts := srv.RequestsTo(http.MethodPost, "/vms")
	require.Len(t, posts, 1)
	body := posts[0]
	assert.Equal(t, clusters[0], body.Get("spec.cluster_reference.uuid").String())
	assert.Equal(t, "cluster", body.Get("spec.cluster_reference.kind").String())
	assert.EqualValues(t, 2048, body.Get("spec.resources.memory_size_mib").Int())
	assert.EqualValues(t, 2, body.Get("spec.resources.num_sockets").Int())
	assert.Equal(t, subnets[1], body.Get("spec.resources.nic_list.0.subnet_reference.uuid").String())
	assert.Equal(t, "10.0.0.5", body.Get("spec.resources.nic_list.0.ip_endpoint_list.0.ip").String())
	assert.True(t, body.Get("spec.resources.nic_list.0.is_connected").Bool())
	assert.Equal(t, subnets[0], body.Get("spec.resources.nic_list.1.subnet_reference.uuid").String())
	assert.False(t, body.Get("spec.resources.nic_list.1.is_connected").Bool())

	assert.Equal(t, "vm-1", gjson.GetBytes(res.Response, "spec.name").String())
}

func TestVMCheckModeKeepsNames(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "vms")

	res, err := run(t, m, map[string]any{
		"name":     "vm-1",
		"cluster":  "c1",
		"networks": []any{map[string]any{"subnet": "net-1"}},
	}, true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, srv.Requests())
	assert.Equal(t, "c1", gjson.GetBytes(res.Response, "spec.cluster_reference.name").String())
	assert.Equal(t, "net-1", gjson.GetBytes(res.Response, "spec.resources.nic_list.0.subnet_reference.name").String())
}

func TestVMUnsetNetworkOptionsIgnored(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "vms")

	res, err := run(t, m, map[string]any{
		"name": "vm-1",
		"networks": []any{map[string]any{
			"subnet":       "net-1",
			"private_ip":   nil,
			"is_connected": nil,
		}},
	}, true)
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, "net-1", gjson.GetBytes(res.Response, "spec.resources.nic_list.0.subnet_reference.name").String())
	assert.True(t, gjson.GetBytes(res.Response, "spec.resources.nic_list.0.is_connected").Bool())
}

func TestVMUnknownClusterFails(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "vms")

	res, err := run(t, m, map[string]any{"name": "vm-1", "cluster": "missing"}, false)
	require.Error(t, err)
	assert.True(t, res.Failed)
	assert.Zero(t, srv.Mutations())
}

func TestVMUpdateNothingToChange(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "vms")
	res, err := run(t, m, map[string]any{"name": "vm-1", "vcpus": 2}, false)
	require.NoError(t, err)

	again, err := run(t, m, map[string]any{"uuid": res.UUID, "vcpus": 2}, false)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, driver.NothingToChange, again.Msg)
	assert.Empty(t, srv.RequestsTo(http.MethodPut, "/vms/"+res.UUID))

	changed, err := run(t, m, map[string]any{"uuid": res.UUID, "vcpus": 4}, false)
	require.NoError(t, err)
	assert.True(t, changed.Changed)
	puts := srv.RequestsTo(http.MethodPut, "/vms/"+res.UUID)
	require.Len(t, puts, 1)
	assert.EqualValues(t, 4, puts[0].Get("spec.resources.num_sockets").Int())
	assert.Equal(t, "vm-1", puts[0].Get("spec.name").String())
	assert.False(t, puts[0].Get("status").Exists())
}

func TestSubnetIPConfig(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "subnets")

	res, err := run(t, m, map[string]any{
		"name":        "net-1",
		"subnet_type": "VLAN",
		"vlan_id":     10,
		"ipam": map[string]any{
			"network_ip":     "10.0.0.0",
			"network_prefix": 24,
			"gateway_ip":     "10.0.0.1",
			"ip_pools":       []any{map[string]any{"start_ip": "10.0.0.10", "end_ip": "10.0.0.20"}},
			"dhcp":           map[string]any{"dns_servers": []any{"8.8.8.8"}, "domain_name": "lab.local"},
		},
	}, true)
	require.NoError(t, err)
	ip := gjson.GetBytes(res.Response, "spec.resources.ip_config")
	assert.Equal(t, "10.0.0.0", ip.Get("subnet_ip").String())
	assert.EqualValues(t, 24, ip.Get("prefix_length").Int())
	assert.Equal(t, "10.0.0.1", ip.Get("default_gateway_ip").String())
	assert.Equal(t, "10.0.0.10 10.0.0.20", ip.Get("pool_list.0.range").String())
	assert.Equal(t, "8.8.8.8", ip.Get("dhcp_options.domain_name_server_list.0").String())
	assert.Equal(t, "lab.local", ip.Get("dhcp_options.domain_name").String())
	assert.EqualValues(t, 10, gjson.GetBytes(res.Response, "spec.resources.vlan_id").Int())
}

func TestSubnetRejectsBadPool(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "subnets")

	res, err := run(t, m, map[string]any{
		"name": "net-1",
		"ipam": map[string]any{
			"network_ip":     "10.0.0.0",
			"network_prefix": 24,
			"ip_pools":       []any{map[string]any{"start_ip": "nope", "end_ip": "10.0.0.20"}},
		},
	}, true)
	require.Error(t, err)
	assert.True(t, res.Failed)
	assert.ErrorIs(t, err, apperrors.ErrInput)
}

func TestVPCLists(t *testing.T) {
	srv := prismtest.NewServer()
	ext := srv.SeedNamed("subnets", "ext", 1)
	m := module(t, srv, "vpcs")

	res, err := run(t, m, map[string]any{
		"name":             "vpc-1",
		"external_subnets": []any{map[string]any{"subnet": "ext-0"}},
		"dns_servers":      []any{"1.1.1.1", "8.8.8.8"},
		"routable_ips":     []any{map[string]any{"network_ip": "192.168.0.0", "network_prefix": 16}},
	}, false)
	require.NoError(t, err)

	posts := srv.RequestsTo(http.MethodPost, "/vpcs")
	require.Len(t, posts, 1)
	body := posts[0]
	assert.Equal(t, ext[0], body.Get("spec.resources.external_subnet_list.0.external_subnet_reference.uuid").String())
	assert.Equal(t, "8.8.8.8", body.Get("spec.resources.common_domain_name_server_ip_list.1.ip").String())
	assert.EqualValues(t, 16, body.Get("spec.resources.externally_routable_prefix_list.0.prefix_length").Int())
	assert.True(t, res.Changed)
}

func TestRoutingPolicy(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "routing_policies")
	vpc := "7d1f0e8a-3b52-4c1d-9e6f-2a4b8c0d1e23"

	t.Run("reroute", func(t *testing.T) {
		res, err := run(t, m, map[string]any{
			"name":        "rp-1",
			"priority":    200,
			"vpc":         map[string]any{"uuid": vpc},
			"protocol":    "ANY",
			"source":      map[string]any{"network": map[string]any{"ip": "10.0.0.0", "prefix": 24}},
			"destination": map[string]any{"external": true},
			"action":      map[string]any{"type": "reroute", "service_ips": []any{"10.0.0.9"}},
		}, true)
		require.NoError(t, err)
		r := gjson.GetBytes(res.Response, "spec.resources")
		assert.EqualValues(t, 200, r.Get("priority").Int())
		assert.Equal(t, vpc, r.Get("vpc_reference.uuid").String())
		assert.Equal(t, "ALL", r.Get("protocol_type").String())
		assert.EqualValues(t, 24, r.Get("source.ip_subnet.prefix_length").Int())
		assert.Equal(t, "INTERNET", r.Get("destination.address_type").String())
		assert.Equal(t, "REROUTE", r.Get("action.action").String())
		assert.Equal(t, "10.0.0.9", r.Get("action.service_ip_list.0").String())
	})

	t.Run("ambiguous address", func(t *testing.T) {
		_, err := run(t, m, map[string]any{
			"name":   "rp-1",
			"source": map[string]any{"any": true, "external": true},
		}, true)
		require.Error(t, err)
	})

	t.Run("reroute needs service ips", func(t *testing.T) {
		_, err := run(t, m, map[string]any{
			"name":   "rp-1",
			"action": map[string]any{"type": "reroute"},
		}, true)
		require.Error(t, err)
	})

	assert.Empty(t, srv.Requests())
}

func TestReadOnlyResources(t *testing.T) {
	srv := prismtest.NewServer()
	srv.SeedNamed("clusters", "c", 3)
	for _, name := range []string{"clusters", "tasks"} {
		m := module(t, srv, name)
		_, err := run(t, m, map[string]any{"name": "x"}, false)
		assert.ErrorIs(t, err, driver.ErrReadOnly, name)
	}

	m := module(t, srv, "clusters")
	res, err := run(t, m, map[string]any{"state": "list"}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, gjson.GetBytes(res.Response, "metadata.total_matches").Int())
}

func isoHeader() []byte {
	buf := make([]byte, 40<<10)
	copy(buf[32769:], "CD001")
	return buf
}

func TestDetectImageType(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o600))
		return p
	}

	kind, err := DetectImageType(write("disk.img", isoHeader()))
	require.NoError(t, err)
	assert.Equal(t, ImageISO, kind)

	kind, err = DetectImageType(write("small.ISO", []byte("tiny")))
	require.NoError(t, err)
	assert.Equal(t, ImageISO, kind)

	kind, err = DetectImageType(write("disk.qcow2", []byte("QFI\xfb0000")))
	require.NoError(t, err)
	assert.Equal(t, ImageDisk, kind)

	_, err = DetectImageType(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestImageUpload(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "images")
	path := filepath.Join(t.TempDir(), "boot.iso")
	data := isoHeader()
	require.NoError(t, os.WriteFile(path, data, 0o600))

	res, err := run(t, m, map[string]any{"name": "boot", "source_path": path}, false)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotEmpty(t, res.UUID)

	posts := srv.RequestsTo(http.MethodPost, "/images")
	require.Len(t, posts, 1)
	assert.Equal(t, ImageISO, posts[0].Get("spec.resources.image_type").String())
	assert.False(t, posts[0].Get("spec.resources.source_path").Exists())

	require.Len(t, srv.RequestsTo(http.MethodPut, "/images/"+res.UUID+"/file"), 1)
	assert.EqualValues(t, len(data), srv.Uploaded(res.UUID))
	// create task, then upload task
	assert.Len(t, srv.RequestsTo(http.MethodGet, res.TaskUUID), 1)
	assert.Len(t, srv.RequestsTo(http.MethodGet, "/images/"+res.UUID), 1)
}

func TestImageRejectsTwoSources(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "images")
	_, err := run(t, m, map[string]any{"name": "x", "source_uri": "http://a/b.qcow2", "source_path": "/tmp/b"}, true)
	assert.ErrorIs(t, err, driver.ErrSchema)
}

func TestUserPreallocatesUUID(t *testing.T) {
	srv := prismtest.NewServer()
	ds := "0c4a7e21-5d3b-4f6a-8e9c-1b2d3f4a5b6c"
	m := module(t, srv, "users")

	res, err := run(t, m, map[string]any{
		"principal_name":    "jane@lab.local",
		"directory_service": map[string]any{"uuid": ds},
	}, false)
	require.NoError(t, err)

	alloc := srv.RequestsTo(http.MethodPost, "/idempotence_identifiers")
	require.Len(t, alloc, 1)
	assert.EqualValues(t, 1, alloc[0].Get("count").Int())

	posts := srv.RequestsTo(http.MethodPost, "/users")
	require.Len(t, posts, 1)
	id := posts[0].Get("metadata.uuid").String()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, res.UUID)
	assert.Equal(t, "user_uuid", res.UUIDKey)
	assert.Equal(t, "jane@lab.local", posts[0].Get("spec.resources.directory_service_user.user_principal_name").String())
	assert.Equal(t, ds, posts[0].Get("spec.resources.directory_service_user.directory_service_reference.uuid").String())
}

func TestUserCheckModeAllocatesNothing(t *testing.T) {
	srv := prismtest.NewServer()
	m := module(t, srv, "users")
	_, err := run(t, m, map[string]any{"username": "jdoe", "identity_provider": "okta"}, true)
	require.NoError(t, err)
	assert.Empty(t, srv.Requests())

	_, err = run(t, m, map[string]any{"username": "jdoe"}, true)
	assert.ErrorIs(t, err, driver.ErrSchema)
}
