// Package approximated is a typed client for the Approximated virtual host
// and DNS API.
package approximated

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-logr/logr"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://cloud.approximated.app/api"

// apiKeyHeader carries the raw key. The documented format has no "Bearer "
// prefix.
const apiKeyHeader = "api-key"

// ErrMissingAPIKey is returned by New when no API key is given.
var ErrMissingAPIKey = errors.New("approximated: api key is required")

// Doer performs a single HTTP round trip. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Approximated API. It holds no mutable state after
// construction and is safe for concurrent use.
type Client struct {
	apiKey    string
	baseURL   string
	userAgent string
	http      Doer
	log       logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL. The value is used verbatim as the
// prefix of every request path.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the transport used for requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger enables V(1) request tracing.
func WithLogger(l logr.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the endpoint requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call to the API.
type request struct {
	op         string
	method     string
	path       string
	body       any
	structured bool // failure body is a field -> messages map
}

// response is a 2xx reply as received.
type response struct {
	status int
	body   []byte
}

// do performs the round trip and returns the raw success response.
func (c *Client) do(ctx context.Context, r request) (response, error) {
	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return response{}, fmt.Errorf("approximated: %s: marshal request body: %w", r.op, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bodyReader)
	if err != nil {
		return response{}, fmt.Errorf("approximated: %s: build request: %w", r.op, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.log.V(1).Info("sending request", "op", r.op, "method", r.method, "path", r.path)
	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, r.failure(TransportFailure, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, r.failure(TransportFailure, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}
	c.log.V(1).Info("received response", "op", r.op, "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, r.statusError(resp.StatusCode, data)
	}
	return response{status: resp.StatusCode, body: data}, nil
}

func (r request) failure(kind ErrorKind, status int, cause error) *Error {
	return &Error{
		Kind:       kind,
		Op:         r.op,
		Method:     r.method,
		Path:       r.path,
		StatusCode: status,
		Err:        cause,
	}
}

func (r request) statusError(status int, body []byte) *Error {
	e := r.failure(OpaqueFailure, status, nil)
	e.Body = string(body)
	if !r.structured {
		return e
	}
	var fields ValidationErrors
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		// Not the documented validation shape; keep the raw text.
		return e
	}
	e.Kind = ValidationFailure
	e.Fields = fields
	return e
}

// validator is implemented by response types that check their own shape.
type validator interface {
	validate() error
}

func checkShape(v any) error {
	if val, ok := v.(validator); ok {
		return val.validate()
	}
	return nil
}

// decodeEnvelope unwraps a {"data": T} response.
func decodeEnvelope[T any](r request, resp response) (T, error) {
	var zero T
	var env struct {
		Data *T `json:"data"`
	}
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return zero, r.decodeError(resp, err)
	}
	if env.Data == nil {
		return zero, r.decodeError(resp, errors.New(`missing "data" field`))
	}
	if err := checkShape(env.Data); err != nil {
		return zero, r.decodeError(resp, err)
	}
	return *env.Data, nil
}

// decodeBare decodes a response that is not enveloped.
func decodeBare[T any](r request, resp response) (T, error) {
	var out T
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return out, r.decodeError(resp, err)
	}
	if err := checkShape(&out); err != nil {
		return out, r.decodeError(resp, err)
	}
	return out, nil
}

func (r request) decodeError(resp response, cause error) *Error {
	e := r.failure(DecodeFailure, resp.status, cause)
	e.Body = string(resp.body)
	return e
}
