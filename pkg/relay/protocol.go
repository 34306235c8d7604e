package relay

import (
	"encoding/json"
	"strconv"
)

// inboundEnvelope is the JSON wrapper the relay uses to deliver an
// HTTP-shaped request over the listening WebSocket. A literal body
// travels as a separate binary frame immediately after this text frame
// when Body is true; Body is false for bodyless requests (a query-string
// validation handshake, most often).
type inboundEnvelope struct {
	Request struct {
		ID             string              `json:"id"`
		Method         string              `json:"method"`
		RequestTarget  string              `json:"requestTarget"`
		RequestHeaders map[string][]string `json:"requestHeaders"`
		Body           bool                `json:"body"`
		Address        string              `json:"address"`
	} `json:"request"`
}

// outboundEnvelope is the response wrapper sent back over either the
// listening connection's control channel or a rendezvous sub-connection.
// statusCode is deliberately a string and the header key is
// responseHeaders, not headers — the relay's wire format, not ours.
type outboundEnvelope struct {
	Response outboundResponse `json:"response"`
}

type outboundResponse struct {
	StatusCode      string              `json:"statusCode"`
	StatusDesc      string              `json:"statusDescription,omitempty"`
	RequestID       string              `json:"requestId"`
	ResponseHeaders map[string][]string `json:"responseHeaders,omitempty"`
	Body            bool                `json:"body"`
}

func decodeInbound(data []byte) (inboundEnvelope, error) {
	var env inboundEnvelope
	err := json.Unmarshal(data, &env)
	return env, err
}

func encodeResponse(requestID string, statusCode int, headers map[string][]string, hasBody bool) ([]byte, error) {
	env := outboundEnvelope{Response: outboundResponse{
		StatusCode:      strconv.Itoa(statusCode),
		RequestID:       requestID,
		ResponseHeaders: headers,
		Body:            hasBody,
	}}
	return json.Marshal(env)
}
