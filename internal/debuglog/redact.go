package debuglog

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "***REDACTED***"

// MaxTextBody is the number of bytes of a non-JSON body kept in a record.
const MaxTextBody = 1024

// TruncatedSuffix marks a non-JSON body that was cut at MaxTextBody.
const TruncatedSuffix = "...[truncated]"

var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"x-api-key":     {},
	"cookie":        {},
	"set-cookie":    {},
}

var sensitiveFieldParts = []string{"password", "token", "secret", "key", "credential", "auth"}

// sensitivePair matches `name=value` and `name: value` where name contains a
// sensitive part. An optional Basic/Bearer scheme is consumed with the value.
var sensitivePair = regexp.MustCompile(`(?i)([\w.-]*(?:` + partsPattern() + `)[\w.-]*"?)(\s*[=:]\s*)((?:basic|bearer)\s+)?("[^"]*"|'[^']*'|[^\s&,;"']+)`)

func partsPattern() string {
	quoted := make([]string, len(sensitiveFieldParts))
	for i, p := range sensitiveFieldParts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(quoted, "|")
}

// IsSensitiveField reports whether a JSON field name must be redacted.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveFieldParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// RedactHeaders flattens headers into a map with sensitive values replaced.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(name)]; ok {
			out[name] = Placeholder
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// RedactBody returns a loggable form of body. Structured values and JSON text
// are redacted field by field; other text is truncated.
func RedactBody(body any) any {
	switch b := body.(type) {
	case nil:
		return nil
	case []byte:
		return redactText(b)
	case string:
		return redactText([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return redactText([]byte(err.Error()))
		}
		return redactText(raw)
	}
}

func redactText(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(b, &v); err == nil {
		return redactValue(v)
	}
	text := string(b)
	if isForm(text) {
		text = redactQuery(text)
	} else {
		text = RedactText(text)
	}
	if len(text) > MaxTextBody {
		return text[:MaxTextBody] + TruncatedSuffix
	}
	return text
}

// RedactText replaces the values of sensitive `name=value` and `name: value`
// pairs in free text, such as error messages.
func RedactText(s string) string {
	return sensitivePair.ReplaceAllString(s, "${1}${2}"+Placeholder)
}

// RedactURL replaces sensitive query values and any userinfo password in raw.
// Text that does not parse as a URL goes through RedactText.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return RedactText(raw)
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "REDACTED")
	}
	u.RawQuery = redactQuery(u.RawQuery)
	u.Fragment = RedactText(u.Fragment)
	return u.String()
}

// isForm reports whether s reads as an urlencoded form.
func isForm(s string) bool {
	if !strings.Contains(s, "=") || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	_, err := url.ParseQuery(s)
	return err == nil
}

// redactQuery rewrites each sensitive key=value pair of an encoded query,
// keeping every other pair and the original order byte for byte.
func redactQuery(q string) string {
	if q == "" {
		return q
	}
	pairs := strings.Split(q, "&")
	for i, pair := range pairs {
		key, _, found := strings.Cut(pair, "=")
		if name, err := url.QueryUnescape(key); err == nil {
			key = name
		}
		if found && IsSensitiveField(key) {
			k, _, _ := strings.Cut(pair, "=")
			pairs[i] = k + "=" + Placeholder
		}
	}
	return strings.Join(pairs, "&")
}

// redactValue walks decoded JSON, replacing values of sensitive fields.
func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveField(k) {
				out[k] = Placeholder
				continue
			}
			out[k] = redactValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = redactValue(val)
		}
		return out
	default:
		return v
	}
}
