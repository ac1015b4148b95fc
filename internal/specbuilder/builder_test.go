package specbuilder

import (
	"errors"
	"testing"

	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vmParams struct {
	Name  string `mapstructure:"name" validate:"required"`
	VCPUs int    `mapstructure:"vcpus" validate:"gte=1"`
}

func vmBuilder() Builder[Doc] {
	return Builder[Doc]{
		Default: func() Doc {
			return NewDoc(`{"api_version":"3.1.0","metadata":{"kind":"vm"},"spec":{"resources":{}}}`)
		},
		Steps: []Step[Doc]{
			{Param: "name", Fn: func(d *Doc, v any) error {
				return d.Set("spec.name", v)
			}},
			{Param: "desc", Fn: func(d *Doc, v any) error {
				return d.Set("spec.description", v)
			}},
			{Param: "vcpus", Fn: func(d *Doc, v any) error {
				n, err := Decode[int](v)
				if err != nil {
					return err
				}
				return d.Set("spec.resources.num_sockets", n)
			}},
			{Param: "fail", Fn: func(d *Doc, v any) error {
				return errors.New("bad value")
			}},
		},
	}
}

func TestGetSpecFromDefault(t *testing.T) {
	spec, err := vmBuilder().GetSpec(nil, map[string]any{
		"name":    "vm1",
		"vcpus":   "2",
		"desc":    "",
		"unknown": "ignored",
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"api_version":"3.1.0","metadata":{"kind":"vm"},"spec":{"name":"vm1","resources":{"num_sockets":2}}}`,
		spec.String())
}

func TestGetSpecIsIdempotent(t *testing.T) {
	b := vmBuilder()
	params := map[string]any{"name": "vm1", "vcpus": 4}

	first, err := b.GetSpec(nil, params)
	require.NoError(t, err)
	second, err := b.GetSpec(&first, params)
	require.NoError(t, err)
	assert.JSONEq(t, first.String(), second.String())
}

func TestGetSpecLeavesOldUntouched(t *testing.T) {
	old := NewDoc(`{"metadata":{"uuid":"u1","spec_version":3},"spec":{"name":"old","extra":{"keep":true}}}`)
	spec, err := vmBuilder().GetSpec(&old, map[string]any{"name": "new"})
	require.NoError(t, err)

	assert.Equal(t, "old", old.Get("spec.name").String())
	assert.Equal(t, "new", spec.Get("spec.name").String())
	assert.True(t, spec.Get("spec.extra.keep").Bool())
	assert.Equal(t, int64(3), spec.Get("metadata.spec_version").Int())
}

func TestGetSpecStopsOnFirstError(t *testing.T) {
	_, err := vmBuilder().GetSpec(nil, map[string]any{"name": "x", "fail": true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuild)
	assert.Equal(t, apperrors.KindInput, apperrors.KindOf(err))
	assert.Equal(t, "fail", apperrors.DetailsOf(err)["param"])
	assert.Contains(t, err.Error(), "bad value")
}

func TestGetSpecWithStructs(t *testing.T) {
	type spec struct {
		Name  string   `json:"name"`
		Disks []string `json:"disks"`
	}
	b := Builder[spec]{
		Default: func() spec { return spec{Name: "default"} },
		Steps: []Step[spec]{
			{Param: "disk", Fn: func(s *spec, v any) error {
				s.Disks = append(s.Disks, v.(string))
				return nil
			}},
		},
	}
	old := spec{Name: "vm", Disks: []string{"a"}}
	got, err := b.GetSpec(&old, map[string]any{"disk": "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Disks)
	assert.Equal(t, []string{"a"}, old.Disks)
	assert.Equal(t, []string{"disk"}, b.Params())
}

func TestEmpty(t *testing.T) {
	var nilMap map[string]any
	var nilPtr *int
	assert.True(t, Empty(nil))
	assert.True(t, Empty(""))
	assert.True(t, Empty(nilMap))
	assert.True(t, Empty([]any{}))
	assert.True(t, Empty(nilPtr))
	assert.False(t, Empty(false))
	assert.False(t, Empty(0))
	assert.False(t, Empty("x"))
	assert.False(t, Empty(map[string]any{"a": 1}))
}

func TestPrune(t *testing.T) {
	got := Prune(map[string]any{
		"a": nil,
		"b": 1,
		"c": map[string]any{"d": nil, "e": "x"},
	})
	assert.Equal(t, map[string]any{"b": 1, "c": map[string]any{"e": "x"}}, got)

	got = Prune(map[string]any{
		"networks": []any{
			map[string]any{"subnet": "s1", "private_ip": nil, "is_connected": nil},
			"plain",
			[]any{map[string]any{"deep": nil, "kept": true}},
		},
		"disks": []map[string]any{{"size_gb": 10, "image": nil}},
	})
	assert.Equal(t, map[string]any{
		"networks": []any{
			map[string]any{"subnet": "s1"},
			"plain",
			[]any{map[string]any{"kept": true}},
		},
		"disks": []map[string]any{{"size_gb": 10}},
	}, got)
}

func TestDecode(t *testing.T) {
	p, err := Decode[vmParams](map[string]any{"name": "vm1", "vcpus": "3"})
	require.NoError(t, err)
	assert.Equal(t, vmParams{Name: "vm1", VCPUs: 3}, p)

	_, err = Decode[vmParams](map[string]any{"vcpus": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "Name")

	_, err = Decode[int]("not a number")
	assert.ErrorIs(t, err, ErrDecode)

	list, err := Decode[[]string]("a,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)
}

func TestDocEdits(t *testing.T) {
	d := NewDoc("")
	require.NoError(t, d.Set("spec.name", "x"))
	require.NoError(t, d.SetRaw("spec.resources", `{"a":[1,2]}`))
	require.NoError(t, d.Delete("spec.name"))
	assert.JSONEq(t, `{"spec":{"resources":{"a":[1,2]}}}`, d.String())

	cp, err := DeepCopy(d)
	require.NoError(t, err)
	require.NoError(t, cp.Set("spec.resources.a", 3))
	assert.Equal(t, int64(1), d.Get("spec.resources.a.0").Int())
}

func TestDocSteps(t *testing.T) {
	b := Builder[Doc]{
		Default: func() Doc { return NewDoc("") },
		Steps: []Step[Doc]{
			{Param: "metadata", Fn: MergeStep("metadata")},
			{Param: "categories", Fn: MergeStep("metadata.categories")},
			{Param: "name", Fn: SetStep("spec.name")},
		},
	}
	old := NewDoc(`{"metadata":{"spec_version":2}}`)
	spec, err := b.GetSpec(&old, map[string]any{
		"metadata":   map[string]any{"uuid": "u1"},
		"categories": map[string]any{"app.tier": "web"},
		"name":       "n",
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"metadata":{"spec_version":2,"uuid":"u1","categories":{"app.tier":"web"}},"spec":{"name":"n"}}`,
		spec.String())

	_, err = b.GetSpec(nil, map[string]any{"metadata": "not a map"})
	assert.ErrorIs(t, err, ErrBuild)
}
