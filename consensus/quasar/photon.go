// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

// photonSampler holds a peer list and a luminanceTracker and selects
// weighted committees from it (spec.md §4.2), grounded on the weighted,
// deterministic-seed selection in ProposerSelector
// (cmd/equa-beacon-engine/engine/proposer.go).
type photonSampler struct {
	mu    sync.RWMutex
	peers []Identifier // insertion order, for the zero-weight fallback
	lum   *luminanceTracker
}

func newPhotonSampler(lum *luminanceTracker) *photonSampler {
	return &photonSampler{lum: lum}
}

// addPeer registers a peer for sampling, if not already present.
func (p *photonSampler) addPeer(id Identifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.peers {
		if existing == id {
			return
		}
	}
	p.peers = append(p.peers, id)
}

// sample returns at most k distinct peers, selected by a weighted-greedy
// pass: for each slot, the peer maximizing weight(p)*rankFactor(p, slot)
// among those not yet chosen, ties broken by lower peer index.
func (p *photonSampler) sample(k int) []Identifier {
	p.mu.RLock()
	peers := make([]Identifier, len(p.peers))
	copy(peers, p.peers)
	p.mu.RUnlock()

	if len(peers) == 0 {
		return nil
	}
	if k > len(peers) {
		k = len(peers)
	}

	var totalWeight float64
	weights := make([]float64, len(peers))
	for i, peer := range peers {
		weights[i] = p.lum.get(peer)
		totalWeight += weights[i]
	}
	if totalWeight <= 0 {
		return append([]Identifier(nil), peers[:k]...)
	}

	chosen := mapset.NewThreadUnsafeSet[int]()
	result := make([]Identifier, 0, k)

	for slot := 0; slot < k; slot++ {
		best := -1
		bestScore := -1.0
		for idx := range peers {
			if chosen.Contains(idx) {
				continue
			}
			score := weights[idx] * rankFactor(idx, slot)
			if best == -1 || score > bestScore {
				best = idx
				bestScore = score
			}
			// Ties broken by lower peer index: since idx increases
			// monotonically and we only replace best on a strictly
			// greater score, the first (lowest-index) peer at a tied
			// score is kept automatically.
		}
		chosen.Add(best)
		result = append(result, peers[best])
	}

	return result
}

// rankFactor is a deterministic function of a peer's index and the current
// slot, giving stable-but-slot-varying tie-breaking weight across the
// committee selection.
func rankFactor(idx, slot int) float64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(idx))
	binary.BigEndian.PutUint64(buf[8:], uint64(slot))
	h := xxhash.Sum64(buf[:])
	// Map to (0, 1]; never exactly 0 so a zero-weight peer never wins a
	// slot via rank factor alone.
	return (float64(h)/float64(math.MaxUint64))*0.999 + 0.001
}
