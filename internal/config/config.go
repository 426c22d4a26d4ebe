// Package config loads client configuration: one section per deployed
// service plus optional shared proxy/TLS settings. YAML and INI files
// are supported, with ${var} substitution at load time.
package config

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// GlobalConfig holds settings shared by every service call.
type GlobalConfig struct {
	HTTPProxy  string
	HTTPSProxy string
	SSLVerify  bool
}

// ServiceConfig holds one service's endpoint plus its batch-mode blob
// storage settings.
type ServiceConfig struct {
	BaseURL        string
	APIKey         string
	BlobAccount    string
	BlobKey        string
	BlobContainer  string
	BlobPathPrefix string
	BlobEndpoint   string
	RemoteOnly     bool
}

// ClientConfig is the full configuration a client runs with. Loaded
// once, read-only afterwards.
type ClientConfig struct {
	Global   GlobalConfig
	Services map[string]ServiceConfig
}

// Service returns the named service's configuration.
func (c *ClientConfig) Service(name string) (ServiceConfig, bool) {
	s, ok := c.Services[name]
	return s, ok
}

// Validate checks that every given service name has a usable endpoint
// entry.
func (c *ClientConfig) Validate(serviceNames []string) error {
	var missing []string
	for _, name := range serviceNames {
		s, ok := c.Services[name]
		if !ok || s.BaseURL == "" || s.APIKey == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("configuration incomplete for services: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HTTPClient builds a client honoring the proxy and TLS-verification
// settings, or nil when the defaults suffice.
func (g GlobalConfig) HTTPClient() (*http.Client, error) {
	if g.HTTPProxy == "" && g.HTTPSProxy == "" && g.SSLVerify {
		return nil, nil
	}
	transport := &http.Transport{}
	if !g.SSLVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if g.HTTPProxy != "" || g.HTTPSProxy != "" {
		httpProxy, err := parseProxy(g.HTTPProxy)
		if err != nil {
			return nil, err
		}
		httpsProxy, err := parseProxy(g.HTTPSProxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsProxy != nil {
				return httpsProxy, nil
			}
			return httpProxy, nil
		}
	}
	return &http.Client{Transport: transport}, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	return u, nil
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteVars replaces ${name} references with caller-supplied
// values. Unresolved references are an error, not silently kept.
func substituteVars(data []byte, vars map[string]string) ([]byte, error) {
	var missing []string
	out := varPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(varPattern.FindSubmatch(match)[1])
		if v, ok := vars[name]; ok {
			return []byte(v)
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("unresolved config variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
