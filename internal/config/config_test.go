package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchalk/txncat/internal/common"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultMaxSequenceLength, cfg.Model.MaxSequenceLength)
	assert.Empty(t, cfg.Model.Path)
	assert.Empty(t, cfg.Fina.URL)
	assert.Empty(t, cfg.Fina.APIKey)
	assert.Equal(t, time.Duration(0), cfg.Fina.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.address", "0.0.0.0:9000")
	viper.Set("model.path", "/opt/models/txncat")
	viper.Set("model.max_sequence_length", 128)
	viper.Set("fina.url", "https://example.test/categorize")
	viper.Set("fina.api_key", "key")
	viper.Set("fina.partner_id", "partner")
	viper.Set("fina.timeout", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, "/opt/models/txncat", cfg.Model.Path)
	assert.Equal(t, 128, cfg.Model.MaxSequenceLength)
	assert.Equal(t, "https://example.test/categorize", cfg.Fina.URL)
	assert.Equal(t, "key", cfg.Fina.APIKey)
	assert.Equal(t, "partner", cfg.Fina.PartnerID)
	assert.Equal(t, 30*time.Second, cfg.Fina.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("model.max_sequence_length", -1)

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestValidateModel(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateModel()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfig))

	cfg.Model.Path = "/opt/models/txncat"
	require.NoError(t, cfg.ValidateModel())
}

func TestExpandPath(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		assert.Equal(t, "", ExpandPath(""))
	})

	t.Run("env vars expand", func(t *testing.T) {
		t.Setenv("TXNCAT_TEST_DIR", "/srv/models")
		assert.Equal(t, "/srv/models/bert", ExpandPath("$TXNCAT_TEST_DIR/bert"))
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		expanded := ExpandPath("~/models")
		assert.NotContains(t, expanded, "~")
	})

	t.Run("plain paths pass through", func(t *testing.T) {
		assert.Equal(t, "/opt/models", ExpandPath("/opt/models"))
	})
}
