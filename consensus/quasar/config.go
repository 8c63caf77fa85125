// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"time"

	"github.com/quasarlabs/quasar-consensus/internal/xlog"
)

// Logger is the structured-logging surface the engine and its
// sub-protocols depend on. See internal/xlog for the concrete
// implementations.
type Logger = xlog.Logger

// EngineType is carried for API compatibility with the original reference
// implementation's Chain/DAG/PQ discriminator (see SPEC_FULL.md,
// "SUPPLEMENTED FEATURES"). It has no effect on this core's behavior.
type EngineType uint8

const (
	EngineTypeChain EngineType = iota
	EngineTypeDAG
)

// SecurityLevel is a hint forwarded to the out-of-scope cryptographic
// provider; the core never branches on it.
type SecurityLevel uint8

const (
	SecurityLow SecurityLevel = iota
	SecurityMedium
	SecurityHigh
)

// Config holds every recognised configuration option from spec.md §6.
// A Config is immutable once passed to Create.
type Config struct {
	// --- Wave ---
	K            int           // committee size, 1..
	Alpha        float64       // fixed threshold ratio in (0.5, 1]
	Beta         int           // consecutive-round finality count, >= 1
	RoundTimeout time.Duration // hint for the out-of-scope transport

	// --- FPC ---
	EnableFPC bool
	ThetaMin  float64
	ThetaMax  float64
	FPCSeed   [32]byte

	// --- Photon ---
	BaseLuminance       float64
	MaxLuminance        float64
	MinLuminance        float64
	SuccessMultiplier   float64
	FailureMultiplier   float64

	// --- Network (hints; core ignores) ---
	NetworkTimeout  time.Duration
	MaxMessageSize  int
	MaxOutstanding  int

	// --- Security (hints to provider) ---
	SecurityLevel    SecurityLevel
	QuantumResistant bool
	GPUAcceleration  bool

	// EngineType is carried for compatibility; see SPEC_FULL.md.
	EngineType EngineType

	// Logger receives structured log events from the engine façade; the
	// sub-protocols do not log. Create defaults to a discarding logger when
	// nil.
	Logger Logger
}

// defaultFPCSeed is the literal seed from spec.md §8 scenario 6.
var defaultFPCSeed = [32]byte{}

func init() {
	copy(defaultFPCSeed[:], "lux-consensus-fpc-default-seed!!")
}

// DefaultConfig returns the "default" preset: k=20, alpha=0.69, beta=20.
func DefaultConfig() Config {
	return Config{
		K:                 20,
		Alpha:             0.69,
		Beta:              20,
		RoundTimeout:      2 * time.Second,
		EnableFPC:         false,
		ThetaMin:          0.5,
		ThetaMax:          0.8,
		FPCSeed:           defaultFPCSeed,
		BaseLuminance:     1.0,
		MaxLuminance:      2.0,
		MinLuminance:      0.1,
		SuccessMultiplier: 1.05,
		FailureMultiplier: 0.95,
		NetworkTimeout:    5 * time.Second,
		MaxMessageSize:    2 << 20,
		MaxOutstanding:    1024,
		SecurityLevel:     SecurityMedium,
		EngineType:        EngineTypeChain,
	}
}

// TestnetConfig returns the "testnet" preset: k=5, alpha=0.6, beta=5, FPC
// off.
func TestnetConfig() Config {
	c := DefaultConfig()
	c.K = 5
	c.Alpha = 0.6
	c.Beta = 5
	c.EnableFPC = false
	c.SecurityLevel = SecurityLow
	return c
}

// MainnetConfig returns the "mainnet" preset: k=21, alpha=0.69, beta=20,
// FPC on, security High.
func MainnetConfig() Config {
	c := DefaultConfig()
	c.K = 21
	c.Alpha = 0.69
	c.Beta = 20
	c.EnableFPC = true
	c.SecurityLevel = SecurityHigh
	c.QuantumResistant = true
	return c
}

// Validate clamps out-of-range Wave/FPC parameters to their documented
// defaults, matching spec.md §4.1's "invalid arguments clamp to defaults"
// contract, and returns the corrected Config.
func (c Config) Validate() Config {
	if c.K < 1 {
		c.K = DefaultConfig().K
	}
	if c.Alpha <= 0.5 || c.Alpha > 1 {
		c.Alpha = DefaultConfig().Alpha
	}
	if c.Beta < 1 {
		c.Beta = DefaultConfig().Beta
	}
	if !(c.ThetaMin > 0 && c.ThetaMin < c.ThetaMax && c.ThetaMax <= 1) {
		c.ThetaMin, c.ThetaMax = 0.5, 0.8
	}
	if c.BaseLuminance <= 0 {
		c.BaseLuminance = DefaultConfig().BaseLuminance
	}
	if c.MaxLuminance <= c.BaseLuminance {
		c.MaxLuminance = DefaultConfig().MaxLuminance
	}
	if c.MinLuminance <= 0 || c.MinLuminance >= c.BaseLuminance {
		c.MinLuminance = DefaultConfig().MinLuminance
	}
	if c.SuccessMultiplier <= 1 {
		c.SuccessMultiplier = DefaultConfig().SuccessMultiplier
	}
	if c.FailureMultiplier <= 0 || c.FailureMultiplier >= 1 {
		c.FailureMultiplier = DefaultConfig().FailureMultiplier
	}
	if c.Logger == nil {
		c.Logger = xlog.Discard()
	}
	return c
}

// quorum returns the fixed supermajority threshold ceil(alpha*k), used when
// FPC is disabled and as the Quasar certifier's threshold regardless of FPC.
func (c Config) quorum() int {
	return ceilThreshold(c.Alpha, c.K)
}

func ceilThreshold(theta float64, k int) int {
	t := int(theta * float64(k))
	if float64(t) < theta*float64(k) {
		t++
	}
	if t < 1 {
		t = 1
	}
	return t
}
