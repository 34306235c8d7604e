package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	raw := []byte(`{
		"request": {
			"id": "req-1",
			"method": "POST",
			"requestTarget": "/?validationToken=abc123",
			"requestHeaders": {"Content-Type": ["application/json"]},
			"body": true,
			"address": "https://ns.servicebus.windows.net/conn1/rendezvous/xyz"
		}
	}`)

	env, err := decodeInbound(raw)
	require.NoError(t, err)

	assert.Equal(t, "req-1", env.Request.ID)
	assert.Equal(t, "POST", env.Request.Method)
	assert.Equal(t, "/?validationToken=abc123", env.Request.RequestTarget)
	assert.True(t, env.Request.Body)
	assert.Equal(t, "https://ns.servicebus.windows.net/conn1/rendezvous/xyz", env.Request.Address)
}

func TestDecodeInbound_InvalidJSON(t *testing.T) {
	_, err := decodeInbound([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeResponse(t *testing.T) {
	data, err := encodeResponse("req-1", 200, map[string][]string{"Content-Type": {"application/json"}}, false)
	require.NoError(t, err)

	var decoded outboundEnvelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "200", decoded.Response.StatusCode)
	assert.Equal(t, "req-1", decoded.Response.RequestID)
	assert.False(t, decoded.Response.Body)
	assert.Equal(t, []string{"application/json"}, decoded.Response.ResponseHeaders["Content-Type"])
}

func TestEncodeResponse_WithBody(t *testing.T) {
	data, err := encodeResponse("req-2", 500, nil, true)
	require.NoError(t, err)

	var decoded outboundEnvelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "500", decoded.Response.StatusCode)
	assert.True(t, decoded.Response.Body)
}
