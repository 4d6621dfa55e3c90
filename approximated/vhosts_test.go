package approximated

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vhostJSON = `{
	"apx_hit": true,
	"created_at": "2023-07-10T22:31:28",
	"dns_pointed_at": "213.188.210.101",
	"has_ssl": true,
	"id": 405,
	"incoming_address": "a.example.com",
	"is_resolving": true,
	"last_monitored_humanized": "2 minutes ago",
	"last_monitored_unix": 1688998288,
	"ssl_active_from": "2023-07-10T22:35:00Z",
	"ssl_active_until": "2023-10-08T22:35:00Z",
	"status": "ACTIVE_SSL",
	"status_message": "Active with SSL",
	"target_address": "app.internal.example.com",
	"target_ports": "443"
}`

func TestCreateVirtualHost(t *testing.T) {
	c, fake := newTestClient(t, http.StatusCreated,
		`{"data":{"id":405,"incoming_address":"a.example.com","target_address":"app.internal.example.com","target_ports":"443","user_message":"Created."}}`)

	vh, err := c.CreateVirtualHost(context.Background(), CreateVirtualHostRequest{
		IncomingAddress: "a.example.com",
		TargetAddress:   "app.internal.example.com",
		TargetPorts:     "443",
		RedirectWWW:     Bool(true),
		KeepHost:        Bool(false),
	})
	require.NoError(t, err)

	got := fake.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/vhosts", got.Path)
	assert.JSONEq(t, `{
		"incoming_address": "a.example.com",
		"target_address": "app.internal.example.com",
		"target_ports": "443",
		"redirect_www": true,
		"keep_host": false
	}`, got.Body)

	assert.Equal(t, VirtualHost{
		ID:              405,
		IncomingAddress: "a.example.com",
		TargetAddress:   "app.internal.example.com",
		TargetPorts:     "443",
		UserMessage:     "Created.",
	}, vh)
}

func TestGetVirtualHost_DecodesBehaviorFlags(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK,
		`{"data":{"id":9,"incoming_address":"a.example.com","redirect":true,"exact_match":true,"redirect_www":true,"keep_host":false}}`)

	vh, err := c.GetVirtualHost(context.Background(), "a.example.com")
	require.NoError(t, err)
	assert.True(t, vh.Redirect)
	assert.True(t, vh.ExactMatch)
	assert.True(t, vh.RedirectWWW)
	require.NotNil(t, vh.KeepHost)
	assert.False(t, *vh.KeepHost)
}

func TestCreateVirtualHost_OmitsUnsetOptionalFields(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK, `{"data":{"id":1,"incoming_address":"a.example.com"}}`)

	_, err := c.CreateVirtualHost(context.Background(), CreateVirtualHostRequest{
		IncomingAddress: "a.example.com",
		TargetAddress:   "app.internal.example.com",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"incoming_address":"a.example.com","target_address":"app.internal.example.com"}`, fake.last(t).Body)
}

func TestCreateVirtualHost_ValidationFailure(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnprocessableEntity, `{"incoming_address":["already in use"]}`)

	_, err := c.CreateVirtualHost(context.Background(), CreateVirtualHostRequest{
		IncomingAddress: "a.example.com",
		TargetAddress:   "app.internal.example.com",
	})
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ValidationFailure, apiErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, ValidationErrors{"incoming_address": {"already in use"}}, apiErr.Fields)
	assert.Contains(t, err.Error(), "incoming_address: already in use")
}

func TestCreateVirtualHost_UnstructuredFailureBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadGateway, "<html>bad gateway</html>")

	_, err := c.CreateVirtualHost(context.Background(), CreateVirtualHostRequest{IncomingAddress: "a.example.com"})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, OpaqueFailure, apiErr.Kind)
	assert.Equal(t, "<html>bad gateway</html>", apiErr.Body)
	assert.Nil(t, apiErr.Fields)
}

func TestGetVirtualHost(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK, `{"data":`+vhostJSON+`}`)

	vh, err := c.GetVirtualHost(context.Background(), "a.example.com")
	require.NoError(t, err)

	got := fake.last(t)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/vhosts/by/incoming/a.example.com", got.Path)
	assert.Empty(t, got.Body)

	assert.Equal(t, int64(405), vh.ID)
	assert.Equal(t, "a.example.com", vh.IncomingAddress)
	assert.Equal(t, "app.internal.example.com", vh.TargetAddress)
	assert.Equal(t, "443", vh.TargetPorts)
	assert.True(t, vh.ApxHit)
	assert.True(t, vh.HasSSL)
	assert.True(t, vh.IsResolving)
	assert.Equal(t, "213.188.210.101", vh.DNSPointedAt)
	assert.Equal(t, "ACTIVE_SSL", vh.Status)
	assert.Equal(t, int64(1688998288), vh.LastMonitoredUnix)
	assert.Equal(t, time.Date(2023, 7, 10, 22, 31, 28, 0, time.UTC), vh.CreatedAt.Time)
	assert.Equal(t, time.Date(2023, 10, 8, 22, 35, 0, 0, time.UTC), vh.SSLActiveUntil.Time)
}

func TestGetVirtualHost_EscapesAddress(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK, `{"data":{"id":1,"incoming_address":"a b.example.com"}}`)

	_, err := c.GetVirtualHost(context.Background(), "a b.example.com")
	require.NoError(t, err)
	assert.Equal(t, "/api/vhosts/by/incoming/a%20b.example.com", fake.last(t).RawPath)
}

func TestGetVirtualHost_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, "Not found")

	_, err := c.GetVirtualHost(context.Background(), "missing.example.com")
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, OpaqueFailure, apiErr.Kind)
	assert.Equal(t, "Not found", apiErr.Body)
	assert.Nil(t, apiErr.Fields)
	assert.True(t, IsNotFound(err))
}

func TestGetVirtualHost_JSONFailureBodyStaysOpaque(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadRequest, `{"incoming_address":["is invalid"]}`)

	_, err := c.GetVirtualHost(context.Background(), "bad")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, OpaqueFailure, apiErr.Kind)
	assert.Equal(t, `{"incoming_address":["is invalid"]}`, apiErr.Body)
}

func TestGetVirtualHost_Idempotent(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"data":`+vhostJSON+`}`)

	first, err := c.GetVirtualHost(context.Background(), "a.example.com")
	require.NoError(t, err)
	second, err := c.GetVirtualHost(context.Background(), "a.example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetVirtualHost_DecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "Deleted."},
		{"missing envelope", `{"id":1,"incoming_address":"a.example.com"}`},
		{"null data", `{"data":null}`},
		{"missing incoming address", `{"data":{"id":1}}`},
		{"wrong field type", `{"data":{"id":"one","incoming_address":"a.example.com"}}`},
		{"bad timestamp", `{"data":{"id":1,"incoming_address":"a.example.com","created_at":"yesterday"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.StatusOK, tt.body)
			_, err := c.GetVirtualHost(context.Background(), "a.example.com")
			require.Error(t, err)
			apiErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, DecodeFailure, apiErr.Kind)
			assert.Equal(t, http.StatusOK, apiErr.StatusCode)
			assert.Equal(t, tt.body, apiErr.Body)
		})
	}
}

func TestCreateVirtualHost_DecodeFailureKeepsStatus(t *testing.T) {
	c, _ := newTestClient(t, http.StatusCreated, `{"data":{"id":1}}`)

	_, err := c.CreateVirtualHost(context.Background(), CreateVirtualHostRequest{
		IncomingAddress: "a.example.com",
		TargetAddress:   "origin.example.net",
	})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, DecodeFailure, apiErr.Kind)
	assert.Equal(t, http.StatusCreated, apiErr.StatusCode)
	assert.False(t, IsNotFound(err))
}

func TestUpdateVirtualHost(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK, `{"data":`+vhostJSON+`}`)

	vh, err := c.UpdateVirtualHost(context.Background(), UpdateVirtualHostRequest{
		CurrentIncomingAddress: "old.example.com",
		IncomingAddress:        "a.example.com",
		ExactMatch:             Bool(false),
	})
	require.NoError(t, err)

	got := fake.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/vhosts/update/by/incoming", got.Path)
	assert.JSONEq(t, `{
		"current_incoming_address": "old.example.com",
		"incoming_address": "a.example.com",
		"exact_match": false
	}`, got.Body)
	assert.Equal(t, "a.example.com", vh.IncomingAddress)
}

func TestUpdateVirtualHost_Failure(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, "Could not find a virtual host with that incoming address")

	_, err := c.UpdateVirtualHost(context.Background(), UpdateVirtualHostRequest{CurrentIncomingAddress: "ghost.example.com"})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, OpaqueFailure, apiErr.Kind)
	assert.True(t, IsNotFound(err))
}

func TestDeleteVirtualHost(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK, "Deleted.")

	msg, err := c.DeleteVirtualHost(context.Background(), "a.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Deleted.", msg)

	got := fake.last(t)
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "/api/vhosts/by/incoming/a.example.com", got.Path)
	assert.Empty(t, got.Body)
}

func TestDeleteVirtualHost_JSONLookingBodyIsReturnedVerbatim(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"message":"Deleted."}`)

	msg, err := c.DeleteVirtualHost(context.Background(), "a.example.com")
	require.NoError(t, err)
	assert.Equal(t, `{"message":"Deleted."}`, msg)
}

func TestDeleteVirtualHost_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, "Not found")

	msg, err := c.DeleteVirtualHost(context.Background(), "ghost.example.com")
	assert.Empty(t, msg)
	assert.True(t, IsNotFound(err))
}
