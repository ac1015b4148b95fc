package resources

import (
	"context"
	"fmt"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

const subnetSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "desc": {"type": "string"},
    "subnet_type": {"enum": ["VLAN", "OVERLAY"]},
    "vlan_id": {"type": "integer", "minimum": 0, "maximum": 4095},
    "cluster": {"type": ["object", "string"]},
    "vpc": {"type": ["object", "string"]},
    "virtual_switch_uuid": {"type": "string"},
    "ipam": {
      "type": "object",
      "required": ["network_ip", "network_prefix"],
      "properties": {
        "network_ip": {"type": "string"},
        "network_prefix": {"type": "integer", "minimum": 0, "maximum": 32},
        "gateway_ip": {"type": "string"},
        "ip_pools": {
          "type": "array",
          "items": {"type": "object", "required": ["start_ip", "end_ip"]}
        },
        "dhcp": {"type": "object"}
      }
    }
  }
}`

type ipam struct {
	NetworkIP     string   `mapstructure:"network_ip" validate:"required,ip"`
	NetworkPrefix int      `mapstructure:"network_prefix" validate:"gte=0,lte=32"`
	GatewayIP     string   `mapstructure:"gateway_ip" validate:"omitempty,ip"`
	IPPools       []ipPool `mapstructure:"ip_pools" validate:"dive"`
	DHCP          *dhcp    `mapstructure:"dhcp"`
}

type ipPool struct {
	StartIP string `mapstructure:"start_ip" validate:"required,ip"`
	EndIP   string `mapstructure:"end_ip" validate:"required,ip"`
}

type dhcp struct {
	DNSServers   []string `mapstructure:"dns_servers" validate:"dive,ip"`
	DomainName   string   `mapstructure:"domain_name"`
	SearchDomain []string `mapstructure:"domain_search"`
	TFTPServer   string   `mapstructure:"tftp_server_name"`
	BootFile     string   `mapstructure:"boot_file"`
}

// Subnets manages /subnets.
func Subnets() Resource {
	r := base("subnets", "subnet")
	r.Schema = subnetSchema
	r.ReadBeforeUpdate = true
	r.Builder = specbuilder.Builder[Spec]{
		Default: v3Default("subnet", `{"name":"","resources":{"subnet_type":"VLAN"}}`),
		Steps: append(commonSteps(),
			Step{Param: "subnet_type", Fn: specbuilder.SetStep("spec.resources.subnet_type")},
			Step{Param: "vlan_id", Fn: intStep("spec.resources.vlan_id", 1)},
			Step{Param: "cluster", Fn: specbuilder.SetStep("spec.cluster_reference")},
			Step{Param: "vpc", Fn: specbuilder.SetStep("spec.resources.vpc_reference")},
			Step{Param: "virtual_switch_uuid", Fn: specbuilder.SetStep("spec.resources.virtual_switch_uuid")},
			Step{Param: "ipam", Fn: buildIPConfig},
		),
	}
	r.Prepare = func(ctx context.Context, env driver.Env, params map[string]any) (map[string]any, error) {
		return resolveRefs(ctx, env, params, clusterRef, vpcRef, projectRef)
	}
	return r
}

func buildIPConfig(d *Spec, v any) error {
	cfg, err := specbuilder.Decode[ipam](v)
	if err != nil {
		return err
	}
	ip := map[string]any{
		"subnet_ip":     cfg.NetworkIP,
		"prefix_length": cfg.NetworkPrefix,
	}
	if cfg.GatewayIP != "" {
		ip["default_gateway_ip"] = cfg.GatewayIP
	}
	if len(cfg.IPPools) > 0 {
		pools := make([]map[string]any, len(cfg.IPPools))
		for i, p := range cfg.IPPools {
			pools[i] = map[string]any{"range": fmt.Sprintf("%s %s", p.StartIP, p.EndIP)}
		}
		ip["pool_list"] = pools
	}
	if cfg.DHCP != nil {
		opts := map[string]any{}
		if len(cfg.DHCP.DNSServers) > 0 {
			opts["domain_name_server_list"] = cfg.DHCP.DNSServers
		}
		if cfg.DHCP.DomainName != "" {
			opts["domain_name"] = cfg.DHCP.DomainName
		}
		if len(cfg.DHCP.SearchDomain) > 0 {
			opts["domain_search_list"] = cfg.DHCP.SearchDomain
		}
		if cfg.DHCP.TFTPServer != "" {
			opts["tftp_server_name"] = cfg.DHCP.TFTPServer
		}
		if cfg.DHCP.BootFile != "" {
			opts["boot_file_name"] = cfg.DHCP.BootFile
		}
		ip["dhcp_options"] = opts
	}
	return d.Set("spec.resources.ip_config", ip)
}
