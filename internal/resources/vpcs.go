package resources

import (
	"context"
	"fmt"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

const vpcSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "external_subnets": {
      "type": "array",
      "items": {"type": "object", "required": ["subnet"]}
    },
    "dns_servers": {"type": "array", "items": {"type": "string"}},
    "routable_ips": {
      "type": "array",
      "items": {"type": "object", "required": ["network_ip", "network_prefix"]}
    }
  }
}`

type routableIP struct {
	NetworkIP     string `mapstructure:"network_ip" validate:"required,ip"`
	NetworkPrefix int    `mapstructure:"network_prefix" validate:"gte=0,lte=32"`
}

// VPCs manages /vpcs. Only the listed parameters have steps; anything else in
// an existing VPC spec is carried through updates unchanged.
func VPCs() Resource {
	r := base("vpcs", "vpc")
	r.Schema = vpcSchema
	r.ReadBeforeUpdate = true
	r.Builder = specbuilder.Builder[Spec]{
		Default: v3Default("vpc", `{"name":"","resources":{}}`),
		Steps: append(commonSteps(),
			Step{Param: "external_subnets", Fn: buildExternalSubnets},
			Step{Param: "dns_servers", Fn: buildDNSServers},
			Step{Param: "routable_ips", Fn: buildRoutableIPs},
		),
	}
	r.Prepare = prepareVPC
	return r
}

func prepareVPC(ctx context.Context, env driver.Env, params map[string]any) (map[string]any, error) {
	out, err := resolveRefs(ctx, env, params, projectRef)
	if err != nil {
		return nil, err
	}
	subnets, ok := out["external_subnets"].([]any)
	if !ok {
		return out, nil
	}
	refs := make([]any, len(subnets))
	for i, s := range subnets {
		m, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("external_subnets[%d]: expected a mapping", i)
		}
		ref, err := reference(ctx, env, subnetRef, m["subnet"])
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	out["external_subnets"] = refs
	return out, nil
}

func buildExternalSubnets(d *Spec, v any) error {
	refs, err := specbuilder.Decode[[]map[string]any](v)
	if err != nil {
		return err
	}
	list := make([]map[string]any, len(refs))
	for i, ref := range refs {
		list[i] = map[string]any{"external_subnet_reference": ref}
	}
	return d.Set("spec.resources.external_subnet_list", list)
}

func buildDNSServers(d *Spec, v any) error {
	ips, err := specbuilder.Decode[[]string](v)
	if err != nil {
		return err
	}
	list := make([]map[string]any, len(ips))
	for i, ip := range ips {
		list[i] = map[string]any{"ip": ip}
	}
	return d.Set("spec.resources.common_domain_name_server_ip_list", list)
}

func buildRoutableIPs(d *Spec, v any) error {
	prefixes, err := specbuilder.Decode[[]routableIP](v)
	if err != nil {
		return err
	}
	list := make([]map[string]any, len(prefixes))
	for i, p := range prefixes {
		list[i] = map[string]any{"ip": p.NetworkIP, "prefix_length": p.NetworkPrefix}
	}
	return d.Set("spec.resources.externally_routable_prefix_list", list)
}
