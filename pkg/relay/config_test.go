package relay

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.ReconnectWait)
}

func TestConfig_WithDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{TokenTTL: 30 * time.Minute, ReconnectWait: time.Second}.withDefaults()
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, time.Second, cfg.ReconnectWait)
}

func TestSignedToken_IsDeterministicForSameInputs(t *testing.T) {
	now := time.Unix(1700000000, 0)
	t1 := signedToken("http://ns.example.com/conn", "keyname", "secret", time.Hour, now)
	t2 := signedToken("http://ns.example.com/conn", "keyname", "secret", time.Hour, now)
	assert.Equal(t, t1, t2)
}

func TestSignedToken_DiffersByKey(t *testing.T) {
	now := time.Unix(1700000000, 0)
	t1 := signedToken("http://ns.example.com/conn", "keyname", "secret-a", time.Hour, now)
	t2 := signedToken("http://ns.example.com/conn", "keyname", "secret-b", time.Hour, now)
	assert.NotEqual(t, t1, t2)
}

func TestSignedToken_Shape(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := signedToken("http://ns.example.com/conn", "keyname", "secret", time.Hour, now)

	require.True(t, strings.HasPrefix(token, "SharedAccessSignature "))
	assert.Contains(t, token, "sr=")
	assert.Contains(t, token, "sig=")
	assert.Contains(t, token, "se="+strconv.FormatInt(now.Add(time.Hour).Unix(), 10))
	assert.Contains(t, token, "skn=keyname")
}

func TestConfig_ListenURL(t *testing.T) {
	cfg := Config{Namespace: "ns.servicebus.windows.net", ConnectionName: "conn1", KeyName: "key1", Key: "secret"}.withDefaults()
	now := time.Unix(1700000000, 0)

	u := cfg.listenURL("listener-1", now)
	parsed, err := url.Parse(u)
	require.NoError(t, err)

	assert.Equal(t, "wss", parsed.Scheme)
	assert.Equal(t, "ns.servicebus.windows.net", parsed.Host)
	assert.Equal(t, "/$hc/conn1", parsed.Path)
	assert.Equal(t, "listen", parsed.Query().Get("sb-hc-action"))
	assert.Equal(t, "listener-1", parsed.Query().Get("sb-hc-id"))
	assert.NotEmpty(t, parsed.Query().Get("sb-hc-token"))
}

func TestConfig_RendezvousURL_AppendsQuerySeparatorCorrectly(t *testing.T) {
	cfg := Config{Namespace: "ns.servicebus.windows.net", ConnectionName: "conn1", KeyName: "key1", Key: "secret"}.withDefaults()
	now := time.Unix(1700000000, 0)

	withoutQuery := cfg.rendezvousURL("https://ns.servicebus.windows.net/conn1/abc", now)
	assert.Contains(t, withoutQuery, "?sb-hc-token=")

	withQuery := cfg.rendezvousURL("https://ns.servicebus.windows.net/conn1/abc?foo=bar", now)
	assert.Contains(t, withQuery, "&sb-hc-token=")
	assert.NotContains(t, withQuery, "?sb-hc-token=")
}

func TestContainsQuery(t *testing.T) {
	assert.True(t, containsQuery("https://example.com/path?x=1"))
	assert.False(t, containsQuery("https://example.com/path"))
}
