package resources

import (
	"context"
	"fmt"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

const routingPolicySchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "priority": {"type": "integer", "minimum": 10, "maximum": 1000},
    "vpc": {"type": ["object", "string"]},
    "protocol": {"enum": ["ANY", "TCP", "UDP", "ICMP"]},
    "bidirectional": {"type": "boolean"},
    "source": {"type": "object"},
    "destination": {"type": "object"},
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["permit", "deny", "reroute"]},
        "service_ips": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

// address selects traffic by exactly one of its fields.
type address struct {
	Any      bool    `mapstructure:"any"`
	External bool    `mapstructure:"external"`
	Network  *subnet `mapstructure:"network"`
}

type subnet struct {
	IP     string `mapstructure:"ip" validate:"required,ip"`
	Prefix int    `mapstructure:"prefix" validate:"gte=0,lte=32"`
}

type routeAction struct {
	Type       string   `mapstructure:"type" validate:"required,oneof=permit deny reroute"`
	ServiceIPs []string `mapstructure:"service_ips" validate:"required_if=Type reroute,dive,ip"`
}

// RoutingPolicies manages /routing_policies.
func RoutingPolicies() Resource {
	r := base("routing_policies", "routing_policy")
	r.Schema = routingPolicySchema
	r.ReadBeforeUpdate = true
	r.Builder = specbuilder.Builder[Spec]{
		Default: v3Default("routing_policy", `{"name":"","resources":{"priority":100,"is_bidirectional":false,"protocol_type":"ALL"}}`),
		Steps: append(commonSteps(),
			Step{Param: "priority", Fn: intStep("spec.resources.priority", 1)},
			Step{Param: "vpc", Fn: specbuilder.SetStep("spec.resources.vpc_reference")},
			Step{Param: "protocol", Fn: buildProtocol},
			Step{Param: "bidirectional", Fn: specbuilder.SetStep("spec.resources.is_bidirectional")},
			Step{Param: "source", Fn: addressStep("spec.resources.source")},
			Step{Param: "destination", Fn: addressStep("spec.resources.destination")},
			Step{Param: "action", Fn: buildRouteAction},
		),
	}
	r.Prepare = func(ctx context.Context, env driver.Env, params map[string]any) (map[string]any, error) {
		return resolveRefs(ctx, env, params, vpcRef, projectRef)
	}
	return r
}

func buildProtocol(d *Spec, v any) error {
	p, err := specbuilder.Decode[string](v)
	if err != nil {
		return err
	}
	if p == "ANY" {
		p = "ALL"
	}
	return d.Set("spec.resources.protocol_type", p)
}

func addressStep(path string) specbuilder.StepFunc[Spec] {
	return func(d *Spec, v any) error {
		a, err := specbuilder.Decode[address](v)
		if err != nil {
			return err
		}
		set := 0
		out := map[string]any{}
		if a.Any {
			set++
			out["address_type"] = "ALL"
		}
		if a.External {
			set++
			out["address_type"] = "INTERNET"
		}
		if a.Network != nil {
			set++
			out["ip_subnet"] = map[string]any{"ip": a.Network.IP, "prefix_length": a.Network.Prefix}
		}
		if set != 1 {
			return fmt.Errorf("exactly one of any, external or network must be set, got %d", set)
		}
		return d.Set(path, out)
	}
}

func buildRouteAction(d *Spec, v any) error {
	a, err := specbuilder.Decode[routeAction](v)
	if err != nil {
		return err
	}
	action := map[string]any{}
	switch a.Type {
	case "permit":
		action["action"] = "PERMIT"
	case "deny":
		action["action"] = "DENY"
	case "reroute":
		action["action"] = "REROUTE"
		action["service_ip_list"] = a.ServiceIPs
	}
	return d.Set("spec.resources.action", action)
}
