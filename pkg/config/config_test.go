package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.Set("jwt.secret_key", "test-secret")
	v.Set("storage.driver", DriverMemory)
	return v
}

func TestBuild_Defaults(t *testing.T) {
	cfg, err := build(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Reminders.Interval)
	assert.Equal(t, 10*time.Second, cfg.Reminders.DeliveryTimeout)
	assert.Equal(t, 10000.0, cfg.Tracking.DefaultMaxDistance)
	assert.Equal(t, 40.0, cfg.Tracking.SpeedKmh)
	assert.Equal(t, DeliveryModeLog, cfg.Delivery.Mode)
	assert.Equal(t, "0.0.0.0:5000", cfg.Address())
}

func TestBuild_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/meditrack")

	cfg, err := build(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.Equal(t, "postgres://u:p@db/meditrack", cfg.Database.URL)
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *viper.Viper)
		want  string
	}{
		{
			name:  "missing secret",
			setup: func(v *viper.Viper) { v.Set("jwt.secret_key", "") },
			want:  "JWT secret key is required",
		},
		{
			name:  "unknown driver",
			setup: func(v *viper.Viper) { v.Set("storage.driver", "mongo") },
			want:  "unknown storage driver",
		},
		{
			name:  "postgres without password",
			setup: func(v *viper.Viper) { v.Set("storage.driver", DriverPostgres) },
			want:  "database password is required",
		},
		{
			name:  "bad port",
			setup: func(v *viper.Viper) { v.Set("server.port", 70000) },
			want:  "invalid server port",
		},
		{
			name:  "zero interval",
			setup: func(v *viper.Viper) { v.Set("reminders.interval", "0s") },
			want:  "reminder interval must be positive",
		},
		{
			name:  "bad delivery mode",
			setup: func(v *viper.Viper) { v.Set("delivery.mode", "carrier-pigeon") },
			want:  "unknown delivery mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "")
			t.Setenv("DATABASE_URL", "")
			v := newTestViper()
			tt.setup(v)

			_, err := build(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
