package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/utils"
)

func TestLoadProductionConfigDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-db-password")
	t.Setenv("JWT_SECRET_KEY", "test-secret-key-that-is-long-enough-to-pass")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	// Token lifetimes and fleet sizing default to the shared constants.
	assert.Equal(t, utils.AccessTokenTTL, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, utils.RefreshTokenTTL, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, utils.ScreenTokenTTL, cfg.JWT.ScreenTokenTTL)
	assert.Equal(t, int64(utils.DefaultMaxConnections), cfg.Fleet.MaxConnections)
	assert.Equal(t, utils.DefaultHeartbeatWindow, cfg.Fleet.HeartbeatWindow)
	assert.Equal(t, utils.DefaultCampaignSweepInterval, cfg.Fleet.CampaignSweepInterval)
	assert.Equal(t, utils.DefaultConnectivitySweepInterval, cfg.Fleet.ConnectivitySweep)
	assert.Equal(t, utils.CORSMaxAge, cfg.Security.CORSMaxAge)
}

func TestValidateProductionConfigRejectsSweepWiderThanWindow(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-db-password")
	t.Setenv("JWT_SECRET_KEY", "test-secret-key-that-is-long-enough-to-pass")
	t.Setenv("FLEET_CONNECTIVITY_SWEEP_INTERVAL", "10m")

	_, err := LoadProductionConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLEET_CONNECTIVITY_SWEEP_INTERVAL")
}
