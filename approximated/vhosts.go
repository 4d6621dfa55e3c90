package approximated

import (
	"context"
	"net/http"
	"net/url"
)

const vhostsPath = "/vhosts"

func vhostByIncomingPath(incomingAddress string) string {
	return vhostsPath + "/by/incoming/" + url.PathEscape(incomingAddress)
}

// CreateVirtualHost creates a virtual host. Rejected input fails with a
// ValidationFailure whose Fields hold the server's messages.
//
//	POST /vhosts
func (c *Client) CreateVirtualHost(ctx context.Context, in CreateVirtualHostRequest) (VirtualHost, error) {
	r := request{
		op:         "create virtual host",
		method:     http.MethodPost,
		path:       vhostsPath,
		body:       in,
		structured: true,
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return VirtualHost{}, err
	}
	return decodeEnvelope[VirtualHost](r, resp)
}

// GetVirtualHost returns the virtual host for incomingAddress.
//
//	GET /vhosts/by/incoming/{incomingAddress}
func (c *Client) GetVirtualHost(ctx context.Context, incomingAddress string) (VirtualHost, error) {
	r := request{
		op:     "get virtual host",
		method: http.MethodGet,
		path:   vhostByIncomingPath(incomingAddress),
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return VirtualHost{}, err
	}
	return decodeEnvelope[VirtualHost](r, resp)
}

// UpdateVirtualHost changes the virtual host currently at
// in.CurrentIncomingAddress. The incoming address itself may change.
//
//	POST /vhosts/update/by/incoming
func (c *Client) UpdateVirtualHost(ctx context.Context, in UpdateVirtualHostRequest) (VirtualHost, error) {
	r := request{
		op:     "update virtual host",
		method: http.MethodPost,
		path:   vhostsPath + "/update/by/incoming",
		body:   in,
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return VirtualHost{}, err
	}
	return decodeEnvelope[VirtualHost](r, resp)
}

// DeleteVirtualHost deletes the virtual host for incomingAddress and returns
// the server's confirmation text as sent.
//
//	DELETE /vhosts/by/incoming/{incomingAddress}
func (c *Client) DeleteVirtualHost(ctx context.Context, incomingAddress string) (string, error) {
	r := request{
		op:     "delete virtual host",
		method: http.MethodDelete,
		path:   vhostByIncomingPath(incomingAddress),
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return "", err
	}
	// The confirmation is plain text, not JSON.
	return string(resp.body), nil
}
