package vhost

import (
	"strings"
)

// NormalizeHostname lowercases a hostname and strips the trailing root dot.
// e.g. "App.Example.com." → "app.example.com"
func NormalizeHostname(fqdn string) string {
	return strings.ToLower(strings.TrimSuffix(fqdn, "."))
}
