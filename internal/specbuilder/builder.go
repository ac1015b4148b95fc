// Package specbuilder composes request specs from module parameters. A Builder
// holds a default spec and an ordered list of steps, each bound to one
// parameter; GetSpec folds the steps whose parameter is present over a copy of
// either the default or an existing spec.
package specbuilder

import (
	"fmt"
	"reflect"

	jsonitor "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// StepFunc applies one parameter value to spec.
type StepFunc[T any] func(spec *T, value any) error

// Step binds a StepFunc to the parameter it consumes.
type Step[T any] struct {
	Param string
	Fn    StepFunc[T]
}

// Builder composes specs of type T.
type Builder[T any] struct {
	Default func() T
	Steps   []Step[T]
}

// GetSpec returns old (or the default when old is nil) with every step whose
// parameter is present and non-empty applied in order. old is never modified.
// Parameters without a step are ignored; the first failing step stops the fold.
func (b Builder[T]) GetSpec(old *T, params map[string]any) (T, error) {
	var zero T
	var spec T
	switch {
	case old != nil:
		cp, err := DeepCopy(*old)
		if err != nil {
			return zero, err
		}
		spec = cp
	case b.Default != nil:
		spec = b.Default()
	}

	for _, st := range b.Steps {
		v, ok := params[st.Param]
		if !ok || Empty(v) {
			continue
		}
		if err := st.Fn(&spec, v); err != nil {
			log.Debug().Str("param", st.Param).Err(err).Msg("spec step failed")
			return zero, ErrBuild.MsgErr(fmt.Sprintf("%s: %v", st.Param, err), err).With("param", st.Param)
		}
	}
	return spec, nil
}

// Params returns the parameter names the builder consumes, in order.
func (b Builder[T]) Params() []string {
	out := make([]string, 0, len(b.Steps))
	for _, st := range b.Steps {
		out = append(out, st.Param)
	}
	return out
}

// DeepCopy copies v through its JSON form.
func DeepCopy[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, ErrCopy.MsgErr("encode", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, ErrCopy.MsgErr("decode", err)
	}
	return out, nil
}

// Empty reports whether v counts as an absent parameter: nil, "", a nil
// pointer, or an empty map or slice. false and 0 are values.
func Empty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Prune removes keys whose values are nil from params, recursively. Maps
// inside lists are pruned too; list elements themselves are kept.
func Prune(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		out[k] = pruneValue(v)
	}
	return out
}

func pruneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Prune(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = pruneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = Prune(e)
		}
		return out
	}
	return v
}
