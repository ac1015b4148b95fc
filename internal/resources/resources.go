// Package resources declares the resource modules: for each one its collection,
// parameter schema, default spec and ordered spec-building steps, plus the
// hooks that resolve references or upload content.
package resources

import (
	"maps"
	"slices"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/specbuilder"
	"github.com/prismctl/prismctl/internal/tasks"
)

// V3 is the prefix of the v3 collections.
const V3 = "/api/nutanix/v3"

type (
	Spec     = specbuilder.Doc
	Resource = driver.Resource[Spec]
	Step     = specbuilder.Step[Spec]
)

var registry = map[string]func() Resource{
	"vms":              VMs,
	"subnets":          Subnets,
	"vpcs":             VPCs,
	"routing_policies": RoutingPolicies,
	"clusters":         Clusters,
	"images":           Images,
	"users":            Users,
	"tasks":            Tasks,
}

// Lookup returns the resource registered under name.
func Lookup(name string) (Resource, bool) {
	f, ok := registry[name]
	if !ok {
		return Resource{}, false
	}
	return f(), true
}

// Names returns the registered resource names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

func v3Default(kind, body string) func() Spec {
	return func() Spec {
		return specbuilder.NewDoc(`{"api_version":"3.1.0","metadata":{"kind":"` + kind + `"},"spec":` + body + `}`)
	}
}

func base(name, kind string) Resource {
	return Resource{
		Name:         name,
		Kind:         kind,
		ResourceType: V3 + "/" + name,
		APIVersion:   "3.1",
		WaitTimeout:  tasks.DefaultDeadline,
	}
}

// common steps every v3 resource accepts.
func commonSteps() []Step {
	return []Step{
		{Param: "metadata", Fn: specbuilder.MergeStep("metadata")},
		{Param: "name", Fn: specbuilder.SetStep("spec.name")},
		{Param: "desc", Fn: specbuilder.SetStep("spec.description")},
		{Param: "categories", Fn: specbuilder.MergeStep("metadata.categories")},
		{Param: "project", Fn: specbuilder.SetStep("metadata.project_reference")},
	}
}
