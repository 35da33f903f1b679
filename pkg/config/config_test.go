package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afipws-caea/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AFIP_ENV", "homo")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "homo", cfg.AFIP.Env)
	assert.Equal(t, 60, cfg.AFIP.TimeoutSec)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AFIP_ENV", "PROD")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.AFIP.Env)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_InvalidAFIPEnv(t *testing.T) {
	t.Setenv("AFIP_ENV", "staging")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapesPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "afip", Password: "p@ss:word", DBName: "afipws", SSLMode: "disable"}
	assert.Equal(t, "postgres://afip:p%40ss%3Aword@db:5432/afipws?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
