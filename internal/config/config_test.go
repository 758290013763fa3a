package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with credentials from env", func(t *testing.T) {
		viper.Reset()
		t.Setenv("ASSET_RAIL_APP_ID", "app")
		t.Setenv("ASSET_RAIL_APP_SECRET", "secret")
		t.Setenv("CARD_RAIL_SECRET_KEY", "sk_test_x")
		t.Setenv("CARD_RAIL_WEBHOOK_SECRET", "whsec_x")
		t.Setenv("JWT_SECRET_KEY", "jwt")
		t.Setenv("FEE_WITHDRAWAL_CRYPTO", "0.02")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "app", cfg.AssetRail.AppID)
		assert.Equal(t, 15*time.Second, cfg.AssetRail.Timeout)
		assert.Equal(t, 3, cfg.AssetRail.MaxAttempts)
		assert.Equal(t, 200*time.Millisecond, cfg.AssetRail.Backoff)
		assert.Equal(t, 10000, cfg.AssetRail.SuccessCode)
		assert.Equal(t, "TRX", cfg.AssetRail.Chain)
		assert.Equal(t, int32(2), cfg.AssetRail.Decimals)
		assert.Equal(t, "usd", cfg.CardRail.Currency)
		assert.Equal(t, "0.02", cfg.Fees["withdrawal_crypto"])
		assert.Equal(t, "0", cfg.Fees["withdrawal_fiat"])
	})

	t.Run("missing rail secret is fatal", func(t *testing.T) {
		viper.Reset()
		t.Setenv("ASSET_RAIL_APP_ID", "app")
		t.Setenv("ASSET_RAIL_APP_SECRET", "")
		t.Setenv("CARD_RAIL_SECRET_KEY", "sk_test_x")
		t.Setenv("CARD_RAIL_WEBHOOK_SECRET", "whsec_x")
		t.Setenv("JWT_SECRET_KEY", "jwt")

		_, err := Load()
		assert.Error(t, err)
	})
}
