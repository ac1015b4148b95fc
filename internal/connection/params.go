// Package connection turns the shared module input surface (nutanix_host,
// credentials, TLS, proxy and debug settings) into a Connection bound to one
// target. Values come, in order of precedence, from explicit parameters, a named
// profile, NUTANIX_* environment variables and built-in defaults.
package connection

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/prismctl/prismctl/internal/common/apperrors"
)

const (
	DefaultPort    = 9440
	DefaultScheme  = "https"
	DefaultTimeout = 60
)

// Params is the shared connection input of every module.
type Params struct {
	Host          string `mapstructure:"nutanix_host" validate:"required"`
	Port          int    `mapstructure:"nutanix_port" validate:"gte=0,lte=65535"`
	Username      string `mapstructure:"nutanix_username"`
	Password      string `mapstructure:"nutanix_password"`
	ValidateCerts *bool  `mapstructure:"validate_certs"`
	Scheme        string `mapstructure:"nutanix_scheme" validate:"omitempty,oneof=http https"`
	Timeout       int    `mapstructure:"timeout" validate:"gte=0"`
	Debug         *bool  `mapstructure:"nutanix_debug"`
	LogFile       string `mapstructure:"nutanix_log_file"`
	HTTPSProxy    string `mapstructure:"https_proxy"`
	HTTPProxy     string `mapstructure:"http_proxy"`
	AllProxy      string `mapstructure:"all_proxy"`
	NoProxy       string `mapstructure:"no_proxy"`
	ProxyUsername string `mapstructure:"proxy_username"`
	ProxyPassword string `mapstructure:"proxy_password"`
}

// Keys are the parameter names owned by Params. Module drivers strip them
// before handing the rest of the input to spec builders.
var Keys = []string{
	"nutanix_host", "nutanix_port", "nutanix_username", "nutanix_password",
	"validate_certs", "nutanix_scheme", "nutanix_debug", "nutanix_log_file",
	"https_proxy", "http_proxy", "all_proxy", "no_proxy", "proxy_username", "proxy_password",
}

// envFallback maps parameter names to the environment variables consulted when
// neither the parameters nor the profile set them.
var envFallback = map[string]string{
	"nutanix_host":     "NUTANIX_HOST",
	"nutanix_port":     "NUTANIX_PORT",
	"nutanix_username": "NUTANIX_USERNAME",
	"nutanix_password": "NUTANIX_PASSWORD",
	"validate_certs":   "VALIDATE_CERTS",
	"nutanix_debug":    "NUTANIX_DEBUG",
	"nutanix_log_file": "NUTANIX_LOG_FILE",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeParams merges params over profile over the environment and decodes
// the result. Unknown keys are ignored; they belong to the resource module.
func DecodeParams(params, profile map[string]any, getenv func(string) string) (*Params, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	merged := make(map[string]any, len(Keys)+1)
	for key, env := range envFallback {
		if v := getenv(env); v != "" {
			merged[key] = v
		}
	}
	for _, src := range []map[string]any{profile, params} {
		for k, v := range src {
			if v == nil {
				continue
			}
			merged[k] = v
		}
	}

	p := &Params{Port: DefaultPort, Scheme: DefaultScheme, Timeout: DefaultTimeout}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           p,
	})
	if err != nil {
		return nil, ErrInvalidParams.MsgErr("unable to build decoder", err)
	}
	if err := dec.Decode(pick(merged, Keys, "timeout")); err != nil {
		return nil, ErrInvalidParams.MsgErr(err.Error(), err)
	}
	p.Host = strings.TrimSpace(p.Host)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks required fields and ranges.
func (p *Params) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); !ok {
		return ErrInvalidParams.MsgErr(err.Error(), err)
	}
	out := make(apperrors.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.ValidationError{
			Field:  paramName(fe.StructField()),
			Value:  fe.Value(),
			ErrStr: fmt.Sprintf("failed %q check", fe.Tag()),
		})
	}
	return ErrInvalidParams.MsgErr(out.Error(), out)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

// paramName maps a Params field name back to its input key.
func paramName(field string) string {
	switch field {
	case "Host":
		return "nutanix_host"
	case "Port":
		return "nutanix_port"
	case "Scheme":
		return "nutanix_scheme"
	case "Timeout":
		return "timeout"
	}
	return strings.ToLower(field)
}

func pick(m map[string]any, keys []string, extra ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range slices.Concat(keys, extra) {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
