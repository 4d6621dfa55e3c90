package approximated

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Bool returns a pointer to v, for the optional flags on requests.
func Bool(v bool) *bool {
	return &v
}

// CreateVirtualHostRequest is the body of a create call.
type CreateVirtualHostRequest struct {
	// IncomingAddress is the custom domain to route.
	IncomingAddress string `json:"incoming_address"`
	// TargetAddress is where requests for the custom domain are sent.
	TargetAddress string `json:"target_address"`
	// TargetPorts defaults to 443 on the server when empty.
	TargetPorts string `json:"target_ports,omitempty"`
	// Redirect 301-redirects to the target instead of proxying. The target
	// address must then include its scheme.
	Redirect *bool `json:"redirect,omitempty"`
	// ExactMatch only matches requests whose full URL equals the incoming
	// address, overriding other virtual hosts for the same domain.
	ExactMatch *bool `json:"exact_match,omitempty"`
	// RedirectWWW adds a second virtual host redirecting www.<incoming>.
	RedirectWWW *bool `json:"redirect_www,omitempty"`
	// KeepHost keeps the Host header as the incoming address. Nil uses the
	// cluster default.
	KeepHost *bool `json:"keep_host,omitempty"`
}

// UpdateVirtualHostRequest is the body of an update call. Only
// CurrentIncomingAddress is required; zero fields are left unchanged.
type UpdateVirtualHostRequest struct {
	CurrentIncomingAddress string `json:"current_incoming_address"`
	IncomingAddress        string `json:"incoming_address,omitempty"`
	TargetAddress          string `json:"target_address,omitempty"`
	TargetPorts            string `json:"target_ports,omitempty"`
	Redirect               *bool  `json:"redirect,omitempty"`
	ExactMatch             *bool  `json:"exact_match,omitempty"`
	RedirectWWW            *bool  `json:"redirect_www,omitempty"`
	KeepHost               *bool  `json:"keep_host,omitempty"`
}

// VirtualHost is a server-side routing rule as last observed by the API.
type VirtualHost struct {
	ID                     int64     `json:"id"`
	IncomingAddress        string    `json:"incoming_address"`
	TargetAddress          string    `json:"target_address"`
	TargetPorts            string    `json:"target_ports"`
	Redirect               bool      `json:"redirect,omitempty"`
	ExactMatch             bool      `json:"exact_match,omitempty"`
	RedirectWWW            bool      `json:"redirect_www,omitempty"`
	KeepHost               *bool     `json:"keep_host,omitempty"`
	ApxHit                 bool      `json:"apx_hit"`
	IsResolving            bool      `json:"is_resolving"`
	DNSPointedAt           string    `json:"dns_pointed_at,omitempty"`
	HasSSL                 bool      `json:"has_ssl"`
	SSLActiveFrom          Timestamp `json:"ssl_active_from"`
	SSLActiveUntil         Timestamp `json:"ssl_active_until"`
	LastMonitoredUnix      int64     `json:"last_monitored_unix,omitempty"`
	LastMonitoredHumanized string    `json:"last_monitored_humanized,omitempty"`
	Status                 string    `json:"status,omitempty"`
	StatusMessage          string    `json:"status_message,omitempty"`
	UserMessage            string    `json:"user_message,omitempty"`
	CreatedAt              Timestamp `json:"created_at"`
}

func (v *VirtualHost) validate() error {
	if v.IncomingAddress == "" {
		return errors.New(`virtual host has no "incoming_address"`)
	}
	return nil
}

// DNS record types accepted by the check endpoints. The API expects them
// lowercase.
const (
	RecordTypeA     = "a"
	RecordTypeAAAA  = "aaaa"
	RecordTypeCNAME = "cname"
	RecordTypeTXT   = "txt"
	RecordTypeMX    = "mx"
	RecordTypeNS    = "ns"
)

// RecordQuery is one record to check. Address must be a complete name, not a
// zone-relative placeholder such as "@".
type RecordQuery struct {
	Address      string `json:"address"`
	Type         string `json:"type"`
	MatchAgainst string `json:"match_against"`
}

// RecordResult is the server's verdict for one RecordQuery.
type RecordResult struct {
	Address      string   `json:"address"`
	Type         string   `json:"type"`
	MatchAgainst string   `json:"match_against"`
	ActualValues []string `json:"actual_values"`
	Match        bool     `json:"match"`
}

type dnsCheckRequest struct {
	Records []RecordQuery `json:"records"`
}

type dnsCheckResponse struct {
	Records *[]RecordResult `json:"records"`
}

func (r *dnsCheckResponse) validate() error {
	if r.Records == nil {
		return errors.New(`missing "records" field`)
	}
	return nil
}

// timestampLayouts are tried in order. Layouts without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
}

// Timestamp accepts RFC 3339, zone-less ISO 8601, or null.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
