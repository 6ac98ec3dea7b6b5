package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentive/entitlements/pkg/config"
)

type sampleConfig struct {
	Name    string        `env:"SAMPLE_NAME" envDefault:"fallback"`
	Timeout time.Duration `env:"SAMPLE_TIMEOUT" envDefault:"5s"`
}

type requiredConfig struct {
	Token string `env:"SAMPLE_REQUIRED_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("reads environment values", func(t *testing.T) {
		t.Setenv("SAMPLE_NAME", "entitlementd")
		t.Setenv("SAMPLE_TIMEOUT", "750ms")

		var cfg sampleConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "entitlementd", cfg.Name)
		assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	})

	t.Run("applies defaults", func(t *testing.T) {
		var cfg sampleConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[sampleConfig](nil)
		require.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg requiredConfig
			config.MustLoad(&cfg)
		})
	})

	t.Run("passes on success", func(t *testing.T) {
		assert.NotPanics(t, func() {
			var cfg sampleConfig
			config.MustLoad(&cfg)
		})
	})
}
