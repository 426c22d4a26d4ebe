package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const yamlSample = `
global:
  https_proxy: http://proxy.corp:3128
  ssl_verify: false
services:
  forecaster:
    base_url: https://svc.example.com/workspaces/1/services/2
    api_key: ${forecaster_key}
    blob_account: acct
    blob_key: s3cret
    blob_container: uploads
    remote_only: true
  echo:
    base_url: https://svc.example.com/workspaces/1/services/3
    api_key: plainkey
`

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "client.yaml", yamlSample)
	cfg, err := LoadYAML(path, map[string]string{"forecaster_key": "abc123"})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	svc, ok := cfg.Service("forecaster")
	if !ok {
		t.Fatal("forecaster service missing")
	}
	if svc.APIKey != "abc123" {
		t.Errorf("variable not substituted: %q", svc.APIKey)
	}
	if !svc.RemoteOnly || svc.BlobContainer != "uploads" {
		t.Errorf("unexpected service config: %+v", svc)
	}
	if cfg.Global.SSLVerify {
		t.Error("ssl_verify: false not honored")
	}
	if cfg.Global.HTTPSProxy != "http://proxy.corp:3128" {
		t.Errorf("proxy not loaded: %q", cfg.Global.HTTPSProxy)
	}
}

func TestLoadYAMLUnresolvedVariable(t *testing.T) {
	path := writeFile(t, "client.yaml", yamlSample)
	_, err := LoadYAML(path, nil)
	if err == nil || !strings.Contains(err.Error(), "forecaster_key") {
		t.Fatalf("want unresolved-variable error naming the variable, got %v", err)
	}
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "client.ini", `
[global]
http_proxy = http://proxy.corp:3128

[forecaster]
base_url = https://svc.example.com/workspaces/1/services/2
api_key = ${forecaster_key}
remote_only = true
`)
	cfg, err := LoadINI(path, map[string]string{"forecaster_key": "abc123"})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	svc, ok := cfg.Service("forecaster")
	if !ok {
		t.Fatal("forecaster service missing")
	}
	if svc.APIKey != "abc123" || !svc.RemoteOnly {
		t.Errorf("unexpected service config: %+v", svc)
	}
	if !cfg.Global.SSLVerify {
		t.Error("ssl_verify must default to true")
	}
	if cfg.Global.HTTPProxy != "http://proxy.corp:3128" {
		t.Errorf("proxy not loaded: %q", cfg.Global.HTTPProxy)
	}
}

func TestValidate(t *testing.T) {
	cfg := &ClientConfig{Services: map[string]ServiceConfig{
		"echo": {BaseURL: "https://x", APIKey: "k"},
		"bare": {},
	}}
	if err := cfg.Validate([]string{"echo"}); err != nil {
		t.Errorf("valid service rejected: %v", err)
	}
	err := cfg.Validate([]string{"echo", "bare", "ghost"})
	if err == nil {
		t.Fatal("incomplete services must be rejected")
	}
	for _, name := range []string{"bare", "ghost"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestHTTPClientDefaults(t *testing.T) {
	client, err := (GlobalConfig{SSLVerify: true}).HTTPClient()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if client != nil {
		t.Error("default settings should yield a nil client")
	}

	client, err = (GlobalConfig{HTTPSProxy: "http://proxy.corp:3128", SSLVerify: true}).HTTPClient()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if client == nil {
		t.Fatal("proxy settings should yield a client")
	}
}
