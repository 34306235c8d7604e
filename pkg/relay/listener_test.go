package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryOf_ValidationToken(t *testing.T) {
	q := queryOf("/?validationToken=abc123")
	assert.Equal(t, "abc123", q.Get("validationToken"))
}

func TestQueryOf_NoQuery(t *testing.T) {
	q := queryOf("/some/path")
	assert.Empty(t, q.Get("validationToken"))
}

func TestQueryOf_MalformedTarget(t *testing.T) {
	q := queryOf("://not a url")
	assert.Empty(t, q)
}

func TestNewListener_AppliesConfigDefaults(t *testing.T) {
	l := NewListener(Config{Namespace: "ns", ConnectionName: "conn"}, nil)
	assert.Equal(t, "validationToken", l.validate)
	assert.NotZero(t, l.cfg.TokenTTL)
	assert.NotZero(t, l.cfg.ReconnectWait)
}
