package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// ProviderConfig holds the virtual host provider type, app-level options, and
// provider-specific connection settings.
type ProviderConfig struct {
	Provider string            `yaml:"provider"`
	Upsert   bool              `yaml:"upsert"`
	Settings map[string]string `yaml:"settings"`
	// DNSRecheck is how long to wait before reconciling again when a
	// hostname's DNS does not yet point at its target. Zero disables.
	DNSRecheck time.Duration `yaml:"-"`
}

type rawProviderConfig struct {
	ProviderConfig `yaml:",inline"`
	DNSRecheck     string `yaml:"dns_recheck"`
}

// LoadProviderConfig reads the provider configuration from the path
// specified by the VHOST_PROVIDER_PATH environment variable, defaulting to
// "configs/vhost-provider.yaml".
func LoadProviderConfig() (*ProviderConfig, error) {
	path := os.Getenv("VHOST_PROVIDER_PATH")
	if path == "" {
		path = "configs/vhost-provider.yaml"
	}
	return LoadProviderConfigFromPath(path)
}

// LoadProviderConfigFromPath reads the provider configuration from the
// given file path.
func LoadProviderConfigFromPath(path string) (*ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider config file: %w", err)
	}

	var raw rawProviderConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing provider config file: %w", err)
	}
	cfg := raw.ProviderConfig

	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider config: missing required field 'provider'")
	}

	if raw.DNSRecheck != "" {
		d, err := time.ParseDuration(raw.DNSRecheck)
		if err != nil {
			return nil, fmt.Errorf("provider config: invalid dns_recheck %q: %w", raw.DNSRecheck, err)
		}
		cfg.DNSRecheck = d
	}

	// Expand ${ENV_VAR} references in setting values.
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}

	return &cfg, nil
}
