// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotonSamplerEmptyPeerList(t *testing.T) {
	lum := newLuminanceTracker(1.0, 0.1, 2.0, 1.05, 0.95)
	p := newPhotonSampler(lum)
	assert.Empty(t, p.sample(5))
}

func TestPhotonSamplerZeroWeightFallsBackToInsertionOrder(t *testing.T) {
	peers := make([]Identifier, 5)
	for i := range peers {
		peers[i] = IdentifierFromBytes([]byte{byte(i)})
	}

	zero := newLuminanceTracker(0, 0, 0, 1, 1)
	p := newPhotonSampler(zero)
	for _, id := range peers {
		p.addPeer(id)
	}

	got := p.sample(3)
	require.Len(t, got, 3)
	assert.Equal(t, peers[:3], got)
}

func TestPhotonSamplerDistinctAndBounded(t *testing.T) {
	lum := newLuminanceTracker(1.0, 0.1, 2.0, 1.05, 0.95)
	p := newPhotonSampler(lum)

	for i := 0; i < 10; i++ {
		p.addPeer(IdentifierFromBytes([]byte{byte(i)}))
	}

	got := p.sample(4)
	require.Len(t, got, 4)

	seen := make(map[Identifier]bool)
	for _, id := range got {
		assert.False(t, seen[id], "sample must not repeat a peer")
		seen[id] = true
	}
}

func TestPhotonSamplerDeterministic(t *testing.T) {
	lum := newLuminanceTracker(1.0, 0.1, 2.0, 1.05, 0.95)
	p := newPhotonSampler(lum)
	for i := 0; i < 8; i++ {
		p.addPeer(IdentifierFromBytes([]byte{byte(i)}))
	}

	a := p.sample(5)
	b := p.sample(5)
	assert.Equal(t, a, b)
}

func TestPhotonSamplerCapsAtPeerCount(t *testing.T) {
	lum := newLuminanceTracker(1.0, 0.1, 2.0, 1.05, 0.95)
	p := newPhotonSampler(lum)
	p.addPeer(IdentifierFromBytes([]byte("only-peer")))

	got := p.sample(10)
	assert.Len(t, got, 1)
}
