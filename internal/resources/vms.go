package resources

import (
	"context"
	"fmt"
	"maps"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

const vmSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "desc": {"type": "string"},
    "cluster": {"type": ["object", "string"]},
    "project": {"type": ["object", "string"]},
    "vcpus": {"type": "integer", "minimum": 1},
    "cores_per_vcpu": {"type": "integer", "minimum": 1},
    "memory_gb": {"type": "integer", "minimum": 1},
    "power_state": {"enum": ["ON", "OFF"]},
    "categories": {"type": "object", "additionalProperties": {"type": "string"}},
    "networks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["subnet"],
        "properties": {
          "subnet": {"type": ["object", "string"]},
          "private_ip": {"type": "string"},
          "is_connected": {"type": "boolean"}
        }
      }
    }
  }
}`

type vmNetwork struct {
	Subnet      any    `mapstructure:"subnet" validate:"required"`
	PrivateIP   string `mapstructure:"private_ip" validate:"omitempty,ip"`
	IsConnected *bool  `mapstructure:"is_connected"`
}

// VMs manages /vms.
func VMs() Resource {
	r := base("vms", "vm")
	r.Schema = vmSchema
	r.ReadBeforeUpdate = true
	r.Builder = specbuilder.Builder[Spec]{
		Default: v3Default("vm", `{"name":"","resources":{"num_sockets":1,"num_vcpus_per_socket":1,"memory_size_mib":4096,"power_state":"ON","nic_list":[],"disk_list":[]}}`),
		Steps: append(commonSteps(),
			Step{Param: "cluster", Fn: specbuilder.SetStep("spec.cluster_reference")},
			Step{Param: "vcpus", Fn: intStep("spec.resources.num_sockets", 1)},
			Step{Param: "cores_per_vcpu", Fn: intStep("spec.resources.num_vcpus_per_socket", 1)},
			Step{Param: "memory_gb", Fn: intStep("spec.resources.memory_size_mib", 1024)},
			Step{Param: "power_state", Fn: specbuilder.SetStep("spec.resources.power_state")},
			Step{Param: "networks", Fn: buildNICs},
		),
	}
	r.Prepare = prepareVM
	return r
}

func prepareVM(ctx context.Context, env driver.Env, params map[string]any) (map[string]any, error) {
	out, err := resolveRefs(ctx, env, params, clusterRef, projectRef)
	if err != nil {
		return nil, err
	}
	nets, ok := out["networks"].([]any)
	if !ok {
		return out, nil
	}
	resolved := make([]any, len(nets))
	for i, n := range nets {
		m, ok := n.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("networks[%d]: expected a mapping", i)
		}
		ref, err := reference(ctx, env, subnetRef, m["subnet"])
		if err != nil {
			return nil, err
		}
		cp := maps.Clone(m)
		cp["subnet"] = ref
		resolved[i] = cp
	}
	out["networks"] = resolved
	return out, nil
}

// buildNICs replaces the NIC list with one NIC per network.
func buildNICs(d *Spec, v any) error {
	nets, err := specbuilder.Decode[[]vmNetwork](v)
	if err != nil {
		return err
	}
	nics := make([]map[string]any, 0, len(nets))
	for _, n := range nets {
		nic := map[string]any{
			"nic_type":         "NORMAL_NIC",
			"subnet_reference": n.Subnet,
			"is_connected":     n.IsConnected == nil || *n.IsConnected,
		}
		if n.PrivateIP != "" {
			nic["ip_endpoint_list"] = []map[string]any{{"ip": n.PrivateIP, "type": "ASSIGNED"}}
		}
		nics = append(nics, nic)
	}
	return d.Set("spec.resources.nic_list", nics)
}

// intStep stores an integer parameter multiplied by scale.
func intStep(path string, scale int) specbuilder.StepFunc[Spec] {
	return func(d *Spec, v any) error {
		n, err := specbuilder.Decode[int](v)
		if err != nil {
			return err
		}
		return d.Set(path, n*scale)
	}
}
