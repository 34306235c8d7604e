package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDowntime(t *testing.T) {
	assert.Equal(t, "45s", formatDowntime(45))
	assert.Equal(t, "2m 5s", formatDowntime(125))
	assert.Equal(t, "1h 30m", formatDowntime(5400))
}
