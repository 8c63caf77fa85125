// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"
)

// fpcSelector produces a deterministic, pseudo-random threshold ratio
// theta(phase) in [thetaMin, thetaMax] (spec.md §4.1). The mixing function
// is BLAKE2b-256 keyed with the FPC seed: a real MAC-strength primitive,
// deterministic and stateless between calls.
type fpcSelector struct {
	thetaMin float64
	thetaMax float64
	seed     [32]byte
}

// newFPCSelector constructs a selector from (thetaMin, thetaMax, seed).
// Invalid arguments (thetaMin <= 0, thetaMin >= thetaMax, thetaMax > 1)
// clamp to the documented defaults (0.5, 0.8).
func newFPCSelector(thetaMin, thetaMax float64, seed [32]byte) *fpcSelector {
	if !(thetaMin > 0 && thetaMin < thetaMax && thetaMax <= 1) {
		thetaMin, thetaMax = 0.5, 0.8
	}
	return &fpcSelector{thetaMin: thetaMin, thetaMax: thetaMax, seed: seed}
}

// theta computes theta(phase) = thetaMin + H(seed‖phase)[0..8]/2^64 *
// (thetaMax - thetaMin).
func (f *fpcSelector) theta(phase uint64) float64 {
	h, err := blake2b.New256(f.seed[:])
	if err != nil {
		// blake2b.New256 only errors on an over-long key, which a 32-byte
		// seed never triggers; keep the zero-value selector honest rather
		// than panicking.
		return f.thetaMin
	}

	var phaseBE [8]byte
	binary.BigEndian.PutUint64(phaseBE[:], phase)
	h.Write(phaseBE[:])

	digest := h.Sum(nil)
	frac := float64(binary.BigEndian.Uint64(digest[:8])) / math.MaxUint64

	return f.thetaMin + frac*(f.thetaMax-f.thetaMin)
}

// selectThreshold returns ceil(theta(phase) * k).
func (f *fpcSelector) selectThreshold(phase uint64, k int) int {
	return ceilThreshold(f.theta(phase), k)
}
