// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"github.com/VictoriaMetrics/fastcache"
)

// voteDedupeCache is a bounded, byte-keyed cache used by
// Engine.RecordVotesBatch to skip (block, voter) pairs already applied in
// this or a prior batch call, ahead of Wave's own exact per-block voter set.
// Grounded on the bounded in-memory cache used for transaction/receipt
// lookups in go-ethereum style clients.
type voteDedupeCache struct {
	c *fastcache.Cache
}

// newVoteDedupeCache creates a cache sized in bytes; maxBytes of 32MiB holds
// on the order of a million recent (block, voter) entries.
func newVoteDedupeCache(maxBytes int) *voteDedupeCache {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &voteDedupeCache{c: fastcache.New(maxBytes)}
}

// has reports whether (block, voter) was already recorded, without marking
// it as seen. Callers that only want to succeed-and-remember must call mark
// themselves once the vote is actually applied — an entry must never be
// marked seen ahead of a failed application, or a vote that later becomes
// appliable (e.g. once its block is added) would be dropped forever.
func (v *voteDedupeCache) has(block, voter Identifier) bool {
	return v.c.Has(dedupeKey(block, voter))
}

// mark records (block, voter) as seen.
func (v *voteDedupeCache) mark(block, voter Identifier) {
	v.c.Set(dedupeKey(block, voter), []byte{1})
}

// reset clears the cache. Nothing in the engine calls it; Start and Stop
// leave the cache as it is.
func (v *voteDedupeCache) reset() {
	v.c.Reset()
}

func dedupeKey(block, voter Identifier) []byte {
	buf := make([]byte, 0, IdentifierSize*2)
	buf = append(buf, block[:]...)
	buf = append(buf, voter[:]...)
	return buf
}
