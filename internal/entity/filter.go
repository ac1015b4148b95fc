package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Filters is the structured form of a server filter string.
type Filters map[string]any

// filterEscaper percent-encodes the characters that separate filter terms.
var filterEscaper = strings.NewReplacer("%", "%25", ";", "%3B", ",", "%2C")

// EscapeFilterValue encodes v for use on the right of "==" in a filter:
// ";" (and), "," (or) and "%" are percent-encoded.
func EscapeFilterValue(v string) string {
	return filterEscaper.Replace(v)
}

// String renders sorted "key==value" pairs joined by ";". Values are escaped
// with EscapeFilterValue.
func (f Filters) String() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "==" + EscapeFilterValue(fmt.Sprint(f[k]))
	}
	return strings.Join(parts, ";")
}

// lookupPrefixes are tried in order when resolving a custom filter key.
var lookupPrefixes = []string{"", "spec.", "status.", "spec.resources.", "status.resources.", "metadata."}

// FilterEntities keeps the entities that match every key of filter.
//
// A key is a gjson path looked up on the entity, then under spec, status,
// spec.resources, status.resources and metadata. A map matches when each of its
// keys matches recursively, a list matches when each element matches some
// element of the entity list, and a scalar matches an equal value or a list
// containing it.
func FilterEntities(ents []gjson.Result, filter map[string]any) []gjson.Result {
	want := normalize(filter)
	out := make([]gjson.Result, 0, len(ents))
	for _, e := range ents {
		if matchEntity(e, want) {
			out = append(out, e)
		}
	}
	return out
}

func matchEntity(e gjson.Result, want map[string]any) bool {
	for k, v := range want {
		found := false
		for _, prefix := range lookupPrefixes {
			if got := e.Get(prefix + k); got.Exists() {
				found = matches(got.Value(), v)
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matches(got, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range w {
			gv, ok := g[k]
			if !ok || !matches(gv, v) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok {
			return false
		}
		for _, wv := range w {
			if !containsMatch(g, wv) {
				return false
			}
		}
		return true
	}
	if g, ok := got.([]any); ok {
		return containsMatch(g, want)
	}
	return reflect.DeepEqual(got, want)
}

func containsMatch(list []any, want any) bool {
	for _, v := range list {
		if matches(v, want) {
			return true
		}
	}
	return false
}

// normalize gives filter values the same shapes gjson produces for entities.
func normalize(filter map[string]any) map[string]any {
	data, err := json.Marshal(filter)
	if err != nil {
		return filter
	}
	out, ok := gjson.ParseBytes(data).Value().(map[string]any)
	if !ok {
		return filter
	}
	return out
}
