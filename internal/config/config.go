package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Target describes where a hostname's virtual host should route.
type Target struct {
	Address     string `yaml:"target_address"`
	Ports       string `yaml:"target_ports"`
	KeepHost    *bool  `yaml:"keep_host"`
	RedirectWWW bool   `yaml:"redirect_www"`
	// DNSValue, when set, is the A record value the hostname is expected to
	// resolve to once the customer has pointed it at the cluster.
	DNSValue string `yaml:"dns_value"`
}

// UnmarshalYAML accepts either a bare target address or a full mapping.
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Address = node.Value
		return nil
	}
	type plain Target
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = Target(p)
	return nil
}

// TargetMap maps hostnames and wildcard domains to virtual host targets.
type TargetMap struct {
	entries map[string]Target
}

// LoadTargetMap reads a YAML file mapping domains to targets.
func LoadTargetMap(path string) (*TargetMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading target map file: %w", err)
	}

	entries := make(map[string]Target)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing target map file: %w", err)
	}

	for domain, target := range entries {
		if target.Address == "" {
			return nil, fmt.Errorf("target map: %q has no target_address", domain)
		}
	}

	return NewTargetMap(entries), nil
}

// NewTargetMap builds a TargetMap from entries already in memory. Keys are
// matched case-insensitively.
func NewTargetMap(entries map[string]Target) *TargetMap {
	normalized := make(map[string]Target, len(entries))
	for k, v := range entries {
		normalized[strings.ToLower(strings.TrimSuffix(k, "."))] = v
	}
	return &TargetMap{entries: normalized}
}

// Lookup finds the target for a hostname by matching against domain entries.
// It walks up the domain labels checking for exact matches and wildcard entries.
// Exact matches take priority over wildcards. For example, given:
//
//	"*.mydomain.com":    "ingress-a.internal"
//	"app2.mydomain.com": "ingress-b.internal"
//
// "app1.mydomain.com" returns ingress-a.internal (wildcard match)
// "app2.mydomain.com" returns ingress-b.internal (exact match wins)
func (tm *TargetMap) Lookup(hostname string) (Target, bool) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	for h := hostname; h != ""; {
		if t, ok := tm.entries[h]; ok {
			return t, true
		}
		idx := strings.Index(h, ".")
		if idx < 0 {
			break
		}
		if t, ok := tm.entries["*."+h[idx+1:]]; ok {
			return t, true
		}
		h = h[idx+1:]
	}
	return Target{}, false
}

// Domains returns all configured domains.
func (tm *TargetMap) Domains() []string {
	domains := make([]string, 0, len(tm.entries))
	for d := range tm.entries {
		domains = append(domains, d)
	}
	return domains
}
