package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

type yamlGlobal struct {
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
	SSLVerify  *bool  `yaml:"ssl_verify"`
}

type yamlService struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	BlobAccount    string `yaml:"blob_account"`
	BlobKey        string `yaml:"blob_key"`
	BlobContainer  string `yaml:"blob_container"`
	BlobPathPrefix string `yaml:"blob_path_prefix"`
	BlobEndpoint   string `yaml:"blob_endpoint"`
	RemoteOnly     bool   `yaml:"remote_only"`
}

type yamlFile struct {
	Global   yamlGlobal             `yaml:"global"`
	Services map[string]yamlService `yaml:"services"`
}

// LoadYAML reads a YAML configuration file, substituting ${var}
// references from vars first.
func LoadYAML(path string, vars map[string]string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data, err = substituteVars(data, vars)
	if err != nil {
		return nil, err
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	cfg := &ClientConfig{
		Global: GlobalConfig{
			HTTPProxy:  f.Global.HTTPProxy,
			HTTPSProxy: f.Global.HTTPSProxy,
			SSLVerify:  f.Global.SSLVerify == nil || *f.Global.SSLVerify,
		},
		Services: make(map[string]ServiceConfig, len(f.Services)),
	}
	for name, s := range f.Services {
		cfg.Services[name] = ServiceConfig{
			BaseURL:        s.BaseURL,
			APIKey:         s.APIKey,
			BlobAccount:    s.BlobAccount,
			BlobKey:        s.BlobKey,
			BlobContainer:  s.BlobContainer,
			BlobPathPrefix: s.BlobPathPrefix,
			BlobEndpoint:   s.BlobEndpoint,
			RemoteOnly:     s.RemoteOnly,
		}
	}
	return cfg, nil
}

// LoadINI reads an INI configuration file: a [global] section plus one
// section per service. ${var} substitution applies here too.
func LoadINI(path string, vars map[string]string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data, err = substituteVars(data, vars)
	if err != nil {
		return nil, err
	}
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse INI config: %w", err)
	}

	cfg := &ClientConfig{
		Global:   GlobalConfig{SSLVerify: true},
		Services: make(map[string]ServiceConfig),
	}
	for _, section := range file.Sections() {
		name := section.Name()
		switch name {
		case ini.DefaultSection:
			continue
		case "global":
			cfg.Global.HTTPProxy = section.Key("http_proxy").String()
			cfg.Global.HTTPSProxy = section.Key("https_proxy").String()
			cfg.Global.SSLVerify = section.Key("ssl_verify").MustBool(true)
		default:
			cfg.Services[name] = ServiceConfig{
				BaseURL:        section.Key("base_url").String(),
				APIKey:         section.Key("api_key").String(),
				BlobAccount:    section.Key("blob_account").String(),
				BlobKey:        section.Key("blob_key").String(),
				BlobContainer:  section.Key("blob_container").String(),
				BlobPathPrefix: section.Key("blob_path_prefix").String(),
				BlobEndpoint:   section.Key("blob_endpoint").String(),
				RemoteOnly:     section.Key("remote_only").MustBool(false),
			}
		}
	}
	return cfg, nil
}
