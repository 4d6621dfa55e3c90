package vhost

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by Update and Delete when no virtual host exists
// for the hostname.
var ErrNotFound = errors.New("virtual host not found")

// Route is a virtual host to be managed.
type Route struct {
	Hostname    string            // incoming address, e.g. "app.example.com"
	Target      string            // target address
	TargetPorts string            // "" = provider default
	KeepHost    *bool             // nil = provider default
	RedirectWWW bool
	Meta        map[string]string // provider-specific fields
}

// Provider is the interface that virtual host providers must implement.
type Provider interface {
	Exists(ctx context.Context, hostname string) (bool, error)
	Create(ctx context.Context, route Route) error
	Update(ctx context.Context, route Route) error
	Delete(ctx context.Context, hostname string) error
	Upsert(ctx context.Context, route Route) error
	// Verify reports whether hostname has exactly one A record equal to value.
	Verify(ctx context.Context, hostname, value string) (bool, error)
}
