package httpclient

import (
	"net/url"
	"strings"
)

// ProxySettings are the explicit proxy parameters of a connection.
type ProxySettings struct {
	HTTPSProxy string
	HTTPProxy  string
	AllProxy   string
	NoProxy    string
	Username   string
	Password   string
}

// SelectProxy returns the proxy to use for target, or nil for a direct
// connection. Explicit settings are consulted first in the order https_proxy,
// http_proxy, all_proxy, then the environment variables of the same uppercased
// names. Credentials embedded in the proxy URL win over Username/Password.
func SelectProxy(s ProxySettings, target *url.URL, getenv func(string) string) (*url.URL, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	noProxy := s.NoProxy
	if noProxy == "" {
		noProxy = getenv("NO_PROXY")
	}
	if target != nil && bypassProxy(target.Hostname(), noProxy) {
		return nil, nil
	}

	raw := firstNonEmpty(
		s.HTTPSProxy, s.HTTPProxy, s.AllProxy,
		getenv("HTTPS_PROXY"), getenv("HTTP_PROXY"), getenv("ALL_PROXY"),
	)
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	proxy, err := url.Parse(raw)
	if err != nil || proxy.Host == "" {
		return nil, ErrInvalidProxy.MsgErr("invalid proxy url "+redactProxy(raw), err)
	}
	if proxy.User == nil && s.Username != "" {
		proxy.User = url.UserPassword(s.Username, s.Password)
	}
	return proxy, nil
}

// bypassProxy matches host against a comma separated no_proxy list by exact
// host or dotted suffix. A lone "*" disables proxying.
func bypassProxy(host, noProxy string) bool {
	host = strings.ToLower(host)
	for _, entry := range strings.Split(noProxy, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if entry == "*" {
			return true
		}
		if h, _, ok := strings.Cut(entry, ":"); ok {
			entry = h
		}
		suffix := entry
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		if host == strings.TrimPrefix(entry, ".") || strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func redactProxy(raw string) string {
	if i := strings.Index(raw, "@"); i >= 0 {
		if j := strings.Index(raw, "://"); j >= 0 && j < i {
			return raw[:j+3] + "***@" + raw[i+1:]
		}
		return "***@" + raw[i+1:]
	}
	return raw
}
