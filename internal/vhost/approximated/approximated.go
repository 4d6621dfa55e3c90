package approximated

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	apx "github.com/yuriy-kovalchuk/yk-vhost-manager/approximated"
	"github.com/yuriy-kovalchuk/yk-vhost-manager/internal/vhost"
)

func init() {
	vhost.Register("approximated", func(log logr.Logger, settings map[string]string) (vhost.Provider, error) {
		return New(log, settings)
	})
}

const defaultTimeout = 30 * time.Second

// Provider implements vhost.Provider on top of the Approximated API.
type Provider struct {
	client *apx.Client
	log    logr.Logger
}

// New creates an Approximated provider from the given settings map.
// Required settings: api_key.
// Optional settings: base_url (default apx.DefaultBaseURL), timeout
// (default 30s), skip_tls_verify (default false), user_agent.
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	apiKey := settings["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("approximated: missing required setting 'api_key'")
	}

	timeout := defaultTimeout
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("approximated: invalid timeout %q: %w", v, err)
		}
		timeout = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("approximated: invalid skip_tls_verify %q: %w", v, err)
		}
		if skip {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	client, err := apx.New(apiKey,
		apx.WithBaseURL(settings["base_url"]),
		apx.WithHTTPClient(&http.Client{Transport: transport, Timeout: timeout}),
		apx.WithUserAgent(settings["user_agent"]),
		apx.WithLogger(log.WithName("client")),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{client: client, log: log}, nil
}

// Client exposes the underlying API client.
func (p *Provider) Client() *apx.Client {
	return p.client
}

// Exists checks whether a virtual host exists for the given hostname.
func (p *Provider) Exists(ctx context.Context, hostname string) (bool, error) {
	hostname = vhost.NormalizeHostname(hostname)
	p.log.V(1).Info("checking if virtual host exists", "hostname", hostname)
	_, err := p.client.GetVirtualHost(ctx, hostname)
	if apx.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("approximated: exists %s: %w", hostname, err)
	}
	return true, nil
}

// Create adds a new virtual host.
func (p *Provider) Create(ctx context.Context, route vhost.Route) error {
	hostname := vhost.NormalizeHostname(route.Hostname)
	p.log.Info("creating virtual host", "hostname", hostname, "target", route.Target, "ports", route.TargetPorts)

	req := apx.CreateVirtualHostRequest{
		IncomingAddress: hostname,
		TargetAddress:   route.Target,
		TargetPorts:     route.TargetPorts,
		KeepHost:        route.KeepHost,
	}
	if route.RedirectWWW {
		req.RedirectWWW = apx.Bool(true)
	}

	vh, err := p.client.CreateVirtualHost(ctx, req)
	if err != nil {
		return fmt.Errorf("approximated: create %s: %w", hostname, err)
	}

	p.log.Info("virtual host created", "id", vh.ID, "message", vh.UserMessage)
	return nil
}

// Update points an existing virtual host at the route's target.
func (p *Provider) Update(ctx context.Context, route vhost.Route) error {
	hostname := vhost.NormalizeHostname(route.Hostname)
	p.log.Info("updating virtual host", "hostname", hostname, "target", route.Target, "ports", route.TargetPorts)

	req := apx.UpdateVirtualHostRequest{
		CurrentIncomingAddress: hostname,
		TargetAddress:          route.Target,
		TargetPorts:            route.TargetPorts,
		KeepHost:               route.KeepHost,
	}
	if route.RedirectWWW {
		req.RedirectWWW = apx.Bool(true)
	}

	vh, err := p.client.UpdateVirtualHost(ctx, req)
	if apx.IsNotFound(err) {
		return fmt.Errorf("approximated: update %s: %w: %w", hostname, vhost.ErrNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("approximated: update %s: %w", hostname, err)
	}

	p.log.Info("virtual host updated", "id", vh.ID, "status", vh.Status)
	return nil
}

// Delete removes a virtual host.
func (p *Provider) Delete(ctx context.Context, hostname string) error {
	hostname = vhost.NormalizeHostname(hostname)
	p.log.Info("deleting virtual host", "hostname", hostname)

	msg, err := p.client.DeleteVirtualHost(ctx, hostname)
	if apx.IsNotFound(err) {
		return fmt.Errorf("approximated: delete %s: %w: %w", hostname, vhost.ErrNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("approximated: delete %s: %w", hostname, err)
	}

	p.log.Info("virtual host deleted", "hostname", hostname, "message", msg)
	return nil
}

// Upsert creates or updates a virtual host depending on whether it already exists.
func (p *Provider) Upsert(ctx context.Context, route vhost.Route) error {
	exists, err := p.Exists(ctx, route.Hostname)
	if err != nil {
		return fmt.Errorf("approximated: upsert check: %w", err)
	}
	if exists {
		return p.Update(ctx, route)
	}
	return p.Create(ctx, route)
}

// Verify asks the API whether hostname has exactly one A record equal to value.
func (p *Provider) Verify(ctx context.Context, hostname, value string) (bool, error) {
	hostname = vhost.NormalizeHostname(hostname)
	results, err := p.client.CheckDNSRecordsMatchExactly(ctx, []apx.RecordQuery{{
		Address:      hostname,
		Type:         apx.RecordTypeA,
		MatchAgainst: value,
	}})
	if err != nil {
		return false, fmt.Errorf("approximated: verify %s: %w", hostname, err)
	}
	if len(results) != 1 {
		return false, fmt.Errorf("approximated: verify %s: expected 1 result, got %d", hostname, len(results))
	}

	p.log.V(1).Info("dns check", "hostname", hostname, "expected", value, "actual", results[0].ActualValues, "match", results[0].Match)
	return results[0].Match, nil
}
