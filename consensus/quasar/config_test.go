// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresetsAreInternallyConsistent(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), TestnetConfig(), MainnetConfig()} {
		v := cfg.Validate()
		assert.Equal(t, cfg.K, v.K, "a valid preset must not be altered by Validate")
		assert.Equal(t, cfg.Alpha, v.Alpha)
		assert.Equal(t, cfg.Beta, v.Beta)
	}
}

func TestValidateClampsOutOfRangeFields(t *testing.T) {
	cfg := Config{K: -1, Alpha: 2, Beta: 0, ThetaMin: 0.9, ThetaMax: 0.1}
	v := cfg.Validate()

	assert.Equal(t, DefaultConfig().K, v.K)
	assert.Equal(t, DefaultConfig().Alpha, v.Alpha)
	assert.Equal(t, DefaultConfig().Beta, v.Beta)
	assert.Equal(t, 0.5, v.ThetaMin)
	assert.Equal(t, 0.8, v.ThetaMax)
	assert.NotNil(t, v.Logger)
}

func TestQuorumCeiling(t *testing.T) {
	cfg := Config{K: 20, Alpha: 0.69}
	assert.Equal(t, 14, cfg.quorum()) // ceil(0.69*20) = ceil(13.8) = 14
}

func TestMainnetPresetEnablesFPCAndQuantumResistance(t *testing.T) {
	cfg := MainnetConfig()
	assert.True(t, cfg.EnableFPC)
	assert.True(t, cfg.QuantumResistant)
	assert.Equal(t, SecurityHigh, cfg.SecurityLevel)
}

func TestTestnetPresetDisablesFPC(t *testing.T) {
	cfg := TestnetConfig()
	assert.False(t, cfg.EnableFPC)
}
