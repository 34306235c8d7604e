package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 12*time.Hour, cfg.RenewThreshold)
	assert.Equal(t, 3, cfg.DailyRecreateHour)
	assert.Equal(t, uint64(5), cfg.MaxCreationRetries)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
	assert.Equal(t, 6*time.Hour, cfg.AlertCooldown)
}

func TestConfig_WithDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		CheckInterval:      time.Minute,
		RenewThreshold:     time.Hour,
		DailyRecreateHour:  7,
		MaxCreationRetries: 2,
		RetryDelay:         time.Second,
		AlertCooldown:      time.Hour,
	}.withDefaults()
	assert.Equal(t, time.Minute, cfg.CheckInterval)
	assert.Equal(t, time.Hour, cfg.RenewThreshold)
	assert.Equal(t, 7, cfg.DailyRecreateHour)
	assert.Equal(t, uint64(2), cfg.MaxCreationRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, time.Hour, cfg.AlertCooldown)
}

func TestErrStr(t *testing.T) {
	assert.Equal(t, "", errStr(nil))
	assert.Equal(t, "boom", errStr(errors.New("boom")))
}
