// Package relay maintains a persistent outbound connection to a hybrid
// connection relay and turns inbound HTTP-shaped notifications arriving
// over it into calls against pkg/ingest.Handler, without ever exposing a
// public HTTP listener of our own.
package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Config holds the relay namespace, connection name, and shared access
// key used to authenticate the outbound WebSocket.
type Config struct {
	Namespace      string // e.g. "myrelay.servicebus.windows.net"
	ConnectionName string
	KeyName        string
	Key            string

	TokenTTL      time.Duration // default 1h
	ReconnectWait time.Duration // default 5s
}

func (c Config) withDefaults() Config {
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 5 * time.Second
	}
	return c
}

// signedToken builds a shared-access-signature token scoped to resourceURI,
// valid for ttl from now.
func signedToken(resourceURI, keyName, key string, ttl time.Duration, now time.Time) string {
	encoded := url.QueryEscape(resourceURI)
	expiry := strconv.FormatInt(now.Add(ttl).Unix(), 10)
	toSign := encoded + "\n" + expiry

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(toSign))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s&skn=%s",
		encoded, url.QueryEscape(sig), expiry, url.QueryEscape(keyName))
}

// listenURL builds the wss:// URL the relay is dialed on, authenticated
// with a freshly minted token.
func (c Config) listenURL(listenerID string, now time.Time) string {
	resourceURI := fmt.Sprintf("http://%s/%s", c.Namespace, c.ConnectionName)
	token := signedToken(resourceURI, c.KeyName, c.Key, c.TokenTTL, now)
	return fmt.Sprintf("wss://%s/$hc/%s?sb-hc-action=listen&sb-hc-id=%s&sb-hc-token=%s",
		c.Namespace, c.ConnectionName, url.QueryEscape(listenerID), url.QueryEscape(token))
}

// rendezvousURL builds the URL for the one-shot sub-connection used to
// answer a request that arrived announcing sb-hc-action=request.
func (c Config) rendezvousURL(address string, now time.Time) string {
	resourceURI := fmt.Sprintf("http://%s/%s", c.Namespace, c.ConnectionName)
	token := signedToken(resourceURI, c.KeyName, c.Key, c.TokenTTL, now)
	sep := "&"
	if !containsQuery(address) {
		sep = "?"
	}
	return address + sep + "sb-hc-token=" + url.QueryEscape(token)
}

func containsQuery(address string) bool {
	for _, r := range address {
		if r == '?' {
			return true
		}
	}
	return false
}
