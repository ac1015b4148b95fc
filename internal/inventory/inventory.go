// Package inventory builds a host inventory out of the VMs of a cluster
// fleet, grouped by cluster name.
package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/prismctl/prismctl/internal/entity"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// UnknownCluster groups VMs that report no cluster.
const UnknownCluster = "unknown"

// Lister fetches every entity matching a request.
type Lister interface {
	GetAll(ctx context.Context, req entity.ListRequest, opts ...entity.CallOption) ([]gjson.Result, error)
}

// Host is one VM of the inventory.
type Host struct {
	AnsibleHost string            `json:"ansible_host,omitempty"`
	UUID        string            `json:"uuid"`
	Name        string            `json:"name"`
	PowerState  string            `json:"power_state,omitempty"`
	State       string            `json:"state,omitempty"`
	ClusterUUID string            `json:"cluster_uuid,omitempty"`
	NumSockets  int64             `json:"num_sockets,omitempty"`
	MemoryMiB   int64             `json:"memory_size_mib,omitempty"`
	Categories  map[string]string `json:"categories,omitempty"`
}

// Inventory maps a cluster name to its hosts.
type Inventory map[string][]Host

// Filter is one key==value or key!=value test on a gjson path of a VM.
type Filter struct {
	Path   string
	Value  string
	Negate bool
}

// ParseFilter parses key==value or key!=value.
func ParseFilter(expr string) (Filter, error) {
	for _, op := range []string{"==", "!="} {
		k, v, ok := strings.Cut(expr, op)
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			break
		}
		return Filter{Path: k, Value: strings.TrimSpace(v), Negate: op == "!="}, nil
	}
	return Filter{}, ErrInvalidFilter.New(fmt.Sprintf("invalid filter %q, expected key==value", expr))
}

// ParseFilters parses every expression.
func ParseFilters(exprs []string) ([]Filter, error) {
	out := make([]Filter, 0, len(exprs))
	for _, e := range exprs {
		f, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Match reports whether vm passes f. A path that does not exist compares as
// the empty string.
func (f Filter) Match(vm gjson.Result) bool {
	r := vm.Get(f.Path)
	eq := r.String() == f.Value
	if r.IsArray() {
		eq = slices.ContainsFunc(r.Array(), func(e gjson.Result) bool { return e.String() == f.Value })
	}
	return eq != f.Negate
}

// Build lists every VM and groups the ones passing all filters by cluster name.
func Build(ctx context.Context, l Lister, filters []Filter) (Inventory, error) {
	vms, err := l.GetAll(ctx, entity.ListRequest{Kind: "vm"})
	if err != nil {
		return nil, err
	}
	inv := Inventory{}
	for _, vm := range vms {
		if !matchAll(vm, filters) {
			continue
		}
		cluster := firstString(vm, "status.cluster_reference.name", "spec.cluster_reference.name")
		if cluster == "" {
			cluster = UnknownCluster
		}
		inv[cluster] = append(inv[cluster], hostOf(vm))
	}
	log.Debug().Int("vms", len(vms)).Int("clusters", len(inv)).Msg("inventory built")
	return inv, nil
}

func matchAll(vm gjson.Result, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(vm) {
			return false
		}
	}
	return true
}

func hostOf(vm gjson.Result) Host {
	h := Host{
		AnsibleHost: AnsibleHost(vm),
		UUID:        vm.Get("metadata.uuid").String(),
		Name:        firstString(vm, "status.name", "spec.name"),
		PowerState:  firstString(vm, "status.resources.power_state", "spec.resources.power_state"),
		State:       vm.Get("status.state").String(),
		ClusterUUID: firstString(vm, "status.cluster_reference.uuid", "spec.cluster_reference.uuid"),
		NumSockets:  vm.Get("status.resources.num_sockets").Int(),
		MemoryMiB:   vm.Get("status.resources.memory_size_mib").Int(),
	}
	if cats := vm.Get("metadata.categories"); cats.IsObject() {
		h.Categories = map[string]string{}
		cats.ForEach(func(k, v gjson.Result) bool {
			h.Categories[k.String()] = v.String()
			return true
		})
	}
	return h
}

// AnsibleHost returns the first IP of the first normal NIC, learned or
// assigned, looking at status before spec.
func AnsibleHost(vm gjson.Result) string {
	for _, root := range []string{"status", "spec"} {
		for _, nic := range vm.Get(root + ".resources.nic_list").Array() {
			if t := nic.Get("nic_type").String(); t != "" && t != "NORMAL_NIC" {
				continue
			}
			if ip := nic.Get("ip_endpoint_list.0.ip").String(); ip != "" {
				return ip
			}
			break
		}
	}
	return ""
}

func firstString(vm gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := vm.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}

// Hosts returns the number of hosts across clusters.
func (inv Inventory) Hosts() int {
	n := 0
	for _, hosts := range inv {
		n += len(hosts)
	}
	return n
}

// Ansible renders inv in the dynamic inventory layout: one group per
// cluster listing host names, and the host variables under _meta. A name
// shared by several VMs is replaced by each VM's uuid.
func (inv Inventory) Ansible() map[string]any {
	seen := map[string]int{}
	for _, hosts := range inv {
		for _, h := range hosts {
			seen[h.Name]++
		}
	}

	hostvars := map[string]any{}
	out := map[string]any{"_meta": map[string]any{"hostvars": hostvars}}
	for cluster, hosts := range inv {
		names := make([]string, 0, len(hosts))
		for _, h := range hosts {
			key := h.Name
			if seen[key] > 1 && h.UUID != "" {
				log.Warn().Str("name", h.Name).Str("uuid", h.UUID).Str("cluster", cluster).Msg("duplicate vm name, using uuid as inventory hostname")
				key = h.UUID
			}
			names = append(names, key)
			hostvars[key] = h
		}
		slices.Sort(names)
		out[cluster] = map[string]any{"hosts": names}
	}
	return out
}
