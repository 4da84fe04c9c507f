package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYolinkConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		cfg     YolinkConfig
		wantErr error
		anyErr  bool
	}{
		"valid": {
			cfg: YolinkConfig{ClientID: "id", ClientSecret: "secret", PollInterval: time.Minute},
		},
		"missing client id": {
			cfg:     YolinkConfig{ClientSecret: "secret", PollInterval: time.Minute},
			wantErr: ErrMissingCredentials,
		},
		"missing secret": {
			cfg:     YolinkConfig{ClientID: "id", PollInterval: time.Minute},
			wantErr: ErrMissingCredentials,
		},
		"interval too short": {
			cfg:    YolinkConfig{ClientID: "id", ClientSecret: "secret", PollInterval: time.Millisecond},
			anyErr: true,
		},
		"negative delay": {
			cfg:    YolinkConfig{ClientID: "id", ClientSecret: "secret", PollInterval: time.Minute, RequestDelay: -time.Second},
			anyErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestYolinkConfig_WithDefaults(t *testing.T) {
	cfg := (&YolinkConfig{ClientID: "id"}).WithDefaults()

	assert.Equal(t, DefaultAPIHost, cfg.Host)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "id", cfg.ClientID)
}

func TestLoadSinkConfig(t *testing.T) {
	t.Setenv("MQTT_HOST", "tcp://broker:1883")
	t.Setenv("STALE_AFTER", "24h")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadSinkConfig()
	require.NoError(t, err)

	assert.True(t, cfg.MqttEnabled())
	assert.False(t, cfg.DatabaseEnabled())
	assert.Equal(t, "yolink-integration", cfg.MqttClientID)
	assert.Equal(t, 24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, "0 3 * * *", cfg.CleanupSchedule)
}
