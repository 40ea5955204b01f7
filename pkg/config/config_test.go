package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, time.Minute, cfg.Cache.StatsTTL)
	assert.Equal(t, 2025, cfg.Registry.DefaultYear)
	assert.Equal(t, int64(2*1024*1024), cfg.Registry.MaxImportBytes)
	assert.True(t, cfg.Seed.StudentRegistry)
	assert.Nil(t, cfg.Notifications.Recipients)
	assert.Empty(t, cfg.Export.PDFFontPath)
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("NOTIFY_RECIPIENTS", "office@school.test, , nurse@school.test")
	t.Setenv("DB_ENABLED", "true")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"office@school.test", "nurse@school.test"}, cfg.Notifications.Recipients)
	assert.True(t, cfg.Database.Enabled)
}
