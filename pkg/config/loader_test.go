package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearclaim/backend/pkg/config"
)

func TestLoad(t *testing.T) {
	type testConfig struct {
		Host    string `env:"TEST_CFG_HOST" envDefault:"localhost"`
		Port    int    `env:"TEST_CFG_PORT" envDefault:"5432"`
		Secret  string `env:"TEST_CFG_SECRET"`
		Require string `env:"TEST_CFG_REQUIRED,required"`
	}

	t.Run("parses env vars and defaults", func(t *testing.T) {
		t.Setenv("TEST_CFG_PORT", "9000")
		t.Setenv("TEST_CFG_REQUIRED", "set")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 9000, cfg.Port)
		assert.Empty(t, cfg.Secret)
		assert.Equal(t, "set", cfg.Require)
	})

	t.Run("missing required var fails", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer fails", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	type strictConfig struct {
		Value string `env:"TEST_MUST_VALUE,required"`
	}

	t.Run("panics on failure", func(t *testing.T) {
		var cfg strictConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("succeeds when set", func(t *testing.T) {
		t.Setenv("TEST_MUST_VALUE", "present")
		var cfg strictConfig
		assert.NotPanics(t, func() { config.MustLoad(&cfg) })
		assert.Equal(t, "present", cfg.Value)
	})
}
