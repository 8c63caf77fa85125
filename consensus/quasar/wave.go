// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"hash"
	"hash/fnv"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/bloomfilter/v2"
)

// WaveState is the per-block voting ledger and confidence tally Wave
// maintains (spec.md §3 data model): `{ votes, yes_count, no_count,
// preference, confidence, decided, decision }`. Once Decided, the state is
// frozen — no field changes on any later call.
type WaveState struct {
	Votes         []Vote
	YesCount      int
	NoCount       int
	HasPreference bool
	PreferYes     bool
	Confidence    uint32
	Decided       bool
	Decision      Decision

	voters mapset.Set[Identifier]
}

// waveVoter decides each block by combining a per-round quorum check with
// β-consecutive-round confirmation (spec.md §4.4), grounded on the overall
// coordinator-with-per-item-map shape of Equa (consensus/equa/equa.go) and
// the two-phase update-then-check pattern of
// FinalityEngine.ProcessBlock/CheckFinality
// (cmd/equa-beacon-engine/engine/finality.go). The bloom filter is a fast,
// approximate pre-check ahead of the exact per-block voter set, trimming
// the common case of a never-before-seen voter to one hash pass.
type waveVoter struct {
	mu sync.Mutex

	cfg Config
	fpc *fpcSelector

	phase uint64
	state map[Identifier]*WaveState
	seen  *bloomfilter.Filter
}

func newWaveVoter(cfg Config, fpc *fpcSelector) *waveVoter {
	filter, err := bloomfilter.New(1<<20, 7)
	if err != nil {
		filter = nil
	}
	return &waveVoter{
		cfg:   cfg,
		fpc:   fpc,
		state: make(map[Identifier]*WaveState),
		seen:  filter,
	}
}

func (w *waveVoter) stateFor(id Identifier) *WaveState {
	s, ok := w.state[id]
	if !ok {
		s = &WaveState{voters: mapset.NewThreadUnsafeSet[Identifier]()}
		w.state[id] = s
	}
	return s
}

// threshold returns T for the current consensus check, advancing FPC's
// phase counter first when FPC is enabled (spec.md §4.4: "advances an
// internal phase counter and consults the FPC selector"). The phase counter
// belongs to the waveVoter instance, not to any one block.
func (w *waveVoter) threshold() int {
	if w.cfg.EnableFPC && w.fpc != nil {
		w.phase++
		return w.fpc.selectThreshold(w.phase, w.cfg.K)
	}
	return w.cfg.quorum()
}

// recordVote applies one vote to its block's ledger and runs the internal
// consensus check. Returns the block's current Decision and whether this
// call is the one that just decided it. A vote for an already-decided block,
// or a second vote from a voter already recorded for that block, is dropped
// silently (spec.md §9, "duplicate votes are silently dropped"; ErrAlreadyVoted
// is never surfaced here).
func (w *waveVoter) recordVote(v Vote) (decision Decision, justDecided bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.stateFor(v.BlockID)
	if s.Decided {
		return s.Decision, false
	}

	duplicate := false
	if w.seen != nil {
		h := voterFilterHash(v.BlockID, v.Voter)
		if w.seen.Contains(h) {
			// Bloom positive: might be a repeat, fall through to the exact
			// check. A negative is conclusive — no exact lookup needed.
			duplicate = s.voters.Contains(v.Voter)
		} else {
			w.seen.Add(h)
		}
	} else {
		duplicate = s.voters.Contains(v.Voter)
	}
	if duplicate {
		return s.Decision, false
	}
	s.voters.Add(v.Voter)
	s.Votes = append(s.Votes, v)

	if v.Type.IsYes() {
		s.YesCount++
	} else {
		s.NoCount++
	}

	T := w.threshold()
	if s.YesCount+s.NoCount < w.cfg.K {
		return s.Decision, false // abstain: not enough distinct votes yet
	}

	switch {
	case s.YesCount >= T:
		if s.HasPreference && s.PreferYes {
			s.Confidence++
		} else {
			s.HasPreference, s.PreferYes, s.Confidence = true, true, 1
		}
	case s.NoCount >= T:
		if s.HasPreference && !s.PreferYes {
			s.Confidence++
		} else {
			s.HasPreference, s.PreferYes, s.Confidence = true, false, 1
		}
	default:
		s.Confidence = 0
	}

	if s.Confidence >= uint32(w.cfg.Beta) {
		s.Decided = true
		if s.PreferYes {
			s.Decision = DecisionAccept
		} else {
			s.Decision = DecisionReject
		}
		return s.Decision, true
	}
	return s.Decision, false
}

func (w *waveVoter) get(id Identifier) (WaveState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.state[id]
	if !ok {
		return WaveState{}, false
	}
	return WaveState{
		Votes:         s.Votes,
		YesCount:      s.YesCount,
		NoCount:       s.NoCount,
		HasPreference: s.HasPreference,
		PreferYes:     s.PreferYes,
		Confidence:    s.Confidence,
		Decided:       s.Decided,
		Decision:      s.Decision,
	}, true
}

// voterFilterHash returns a hash.Hash64 over (block, voter), the Hashable
// the bloom filter's Add/Contains expect.
func voterFilterHash(block, voter Identifier) hash.Hash64 {
	h := fnv.New64a()
	h.Write(block[:])
	h.Write(voter[:])
	return h
}
