package specbuilder

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode converts a loosely typed parameter value into V. Structs, and the
// elements of slices, are validated against their validate tags after decoding.
func Decode[V any](value any) (V, error) {
	var out V
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return out, ErrDecode.MsgErr("decoder", err)
	}
	if err := dec.Decode(value); err != nil {
		return out, ErrDecode.MsgErr(err.Error(), err)
	}
	var verr error
	switch reflect.Indirect(reflect.ValueOf(out)).Kind() {
	case reflect.Struct:
		verr = validate.Struct(out)
	case reflect.Slice:
		verr = validate.Var(out, "dive")
	}
	if verr != nil {
		var ve validator.ValidationErrors
		if errors.As(verr, &ve) && len(ve) > 0 {
			return out, ErrDecode.MsgErr(fmt.Sprintf("%s failed %q check", ve[0].Field(), ve[0].Tag()), verr)
		}
		return out, ErrDecode.MsgErr(verr.Error(), verr)
	}
	return out, nil
}
