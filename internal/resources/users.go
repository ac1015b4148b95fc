package resources

import (
	"context"
	"maps"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/resolver"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

const userSchema = `{
  "type": "object",
  "properties": {
    "principal_name": {"type": "string", "minLength": 1},
    "directory_service": {"type": ["object", "string"]},
    "username": {"type": "string", "minLength": 1},
    "identity_provider": {"type": ["object", "string"]}
  },
  "dependentRequired": {
    "principal_name": ["directory_service"],
    "username": ["identity_provider"]
  },
  "not": {"required": ["principal_name", "username"]}
}`

var (
	directoryServiceRef = refParam{Param: "directory_service", Kind: "directory_service", Collection: "directory_services"}
	identityProviderRef = refParam{Param: "identity_provider", Kind: "identity_provider", Collection: "identity_providers"}
)

// Users manages /users. New users get a server allocated uuid up front so a
// retried create cannot produce a duplicate.
func Users() Resource {
	r := base("users", "user")
	r.Schema = userSchema
	r.Builder = specbuilder.Builder[Spec]{
		Default: v3Default("user", `{"resources":{}}`),
		Steps: []Step{
			{Param: "metadata", Fn: specbuilder.MergeStep("metadata")},
			{Param: "categories", Fn: specbuilder.MergeStep("metadata.categories")},
			{Param: "project", Fn: specbuilder.SetStep("metadata.project_reference")},
			{Param: "principal_name", Fn: specbuilder.SetStep("spec.resources.directory_service_user.user_principal_name")},
			{Param: "directory_service", Fn: specbuilder.SetStep("spec.resources.directory_service_user.directory_service_reference")},
			{Param: "username", Fn: specbuilder.SetStep("spec.resources.identity_provider_user.username")},
			{Param: "identity_provider", Fn: specbuilder.SetStep("spec.resources.identity_provider_user.identity_provider_reference")},
		},
	}
	r.Prepare = prepareUser
	return r
}

func prepareUser(ctx context.Context, env driver.Env, params map[string]any) (map[string]any, error) {
	out, err := resolveRefs(ctx, env, params, directoryServiceRef, identityProviderRef, projectRef)
	if err != nil {
		return nil, err
	}
	if env.Check || isUpdate(out) {
		return out, nil
	}
	ids, err := resolver.NewIdempotenceClient(env.Target, env.Transport, "").Allocate(ctx, 1)
	if err != nil {
		return nil, err
	}
	md, _ := out["metadata"].(map[string]any)
	md = maps.Clone(md)
	if md == nil {
		md = map[string]any{}
	}
	md["uuid"] = ids[0]
	out["metadata"] = md
	return out, nil
}

// isUpdate reports whether params name an existing entity.
func isUpdate(params map[string]any) bool {
	if id, _ := params["uuid"].(string); id != "" {
		return true
	}
	md, _ := params["metadata"].(map[string]any)
	id, _ := md["uuid"].(string)
	return id != ""
}
