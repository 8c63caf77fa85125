// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import "sync"

// luminanceTracker maintains a floating-point brightness per peer in
// [min, max] lux (spec.md §4.2), grounded on the per-peer score map and
// bounded multiplicative update in ReputationManager
// (cmd/equa-beacon-engine/engine/fork_reputation.go).
type luminanceTracker struct {
	mu sync.RWMutex

	base        float64
	min         float64
	max         float64
	successMult float64
	failureMult float64

	lux map[Identifier]float64
}

func newLuminanceTracker(base, min, max, successMult, failureMult float64) *luminanceTracker {
	return &luminanceTracker{
		base:        base,
		min:         min,
		max:         max,
		successMult: successMult,
		failureMult: failureMult,
		lux:         make(map[Identifier]float64),
	}
}

// get returns the current brightness for id, or base if id has no recorded
// brightness yet (nothing is stored for id by this call).
func (l *luminanceTracker) get(id Identifier) float64 {
	l.mu.RLock()
	v, ok := l.lux[id]
	l.mu.RUnlock()
	if ok {
		return v
	}
	return l.base
}

// normalized returns lux(id) / base.
func (l *luminanceTracker) normalized(id Identifier) float64 {
	return l.get(id) / l.base
}

// success multiplies id's brightness by successMult, capped at max.
func (l *luminanceTracker) success(id Identifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.lux[id]
	if !ok {
		v = l.base
	}
	v *= l.successMult
	if v > l.max {
		v = l.max
	}
	l.lux[id] = v
}

// failure multiplies id's brightness by failureMult, floored at min.
func (l *luminanceTracker) failure(id Identifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.lux[id]
	if !ok {
		v = l.base
	}
	v *= l.failureMult
	if v < l.min {
		v = l.min
	}
	l.lux[id] = v
}
