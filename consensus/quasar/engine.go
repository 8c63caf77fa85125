// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// EngineStats mirrors the reference implementation's run-time counters
// (SPEC_FULL.md, "SUPPLEMENTED FEATURES"): a snapshot of throughput and
// outcome counts, exposed for observability but never consulted by the
// core's own decision logic.
type EngineStats struct {
	BlocksAccepted      uint64
	BlocksRejected      uint64
	VotesProcessed      uint64
	PollsCompleted      uint64
	AverageDecisionTime time.Duration

	totalDecisionTime time.Duration
	decidedBlocks     uint64
}

// blockEntry is the engine's per-block bookkeeping: the block itself, its
// lifecycle Status, and the time it was added (for AverageDecisionTime).
type blockEntry struct {
	block     Block
	status    Status
	addedAt   time.Time
	certified *Certificate
}

// Engine is the Quasar consensus façade (spec.md §4.6): it wires together
// fpcSelector, luminanceTracker, photonSampler, waveVoter and
// quasarCertifier behind one exclusive lock. Unlike the teacher's Engine
// (cmd/equa-beacon-engine/engine/engine.go), which drives itself with five
// background goroutines over a slot ticker, this core never spawns a
// goroutine: every state transition happens synchronously inside a public
// method call, under engine.mu, per spec.md §5 ("the core never spawns
// threads").
type Engine struct {
	mu sync.Mutex

	cfg     Config
	started bool

	fpc    *fpcSelector
	lum    *luminanceTracker
	photon *photonSampler
	wave   *waveVoter
	cert   *quasarCertifier
	dedupe *voteDedupeCache

	blocks     map[Identifier]*blockEntry
	validators map[Identifier]Validator
	height     uint64

	stats EngineStats
}

// Create builds a new, unstarted Engine from cfg. Invalid fields in cfg are
// clamped to documented defaults by Config.Validate.
func Create(cfg Config) (*Engine, error) {
	cfg = cfg.Validate()

	fpc := newFPCSelector(cfg.ThetaMin, cfg.ThetaMax, cfg.FPCSeed)
	lum := newLuminanceTracker(cfg.BaseLuminance, cfg.MinLuminance, cfg.MaxLuminance, cfg.SuccessMultiplier, cfg.FailureMultiplier)

	e := &Engine{
		cfg:        cfg,
		fpc:        fpc,
		lum:        lum,
		photon:     newPhotonSampler(lum),
		wave:       newWaveVoter(cfg, fpc),
		cert:       newQuasarCertifier(nil, cfg.QuantumResistant, cfg.quorum()),
		dedupe:     newVoteDedupeCache(32 << 20),
		blocks:     make(map[Identifier]*blockEntry),
		validators: make(map[Identifier]Validator),
	}
	return e, nil
}

// Start marks the engine ready to accept blocks and votes, and inserts the
// genesis block (the all-zero Identifier) directly as Accepted (spec.md
// §3, "started... inserts a genesis entry in Accepted state"). Calling
// Start twice returns ErrAlreadyStarted (spec.md §4.6 overrides the
// teacher's inconsistent restart behavior with an explicit error).
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.blocks[Empty] = &blockEntry{
		block:   Block{ID: Empty, ParentID: Empty},
		status:  StatusAccepted,
		addedAt: time.Now(),
	}
	e.cfg.Logger.Info("quasar engine started", "k", e.cfg.K, "alpha", e.cfg.Alpha, "beta", e.cfg.Beta, "fpc", e.cfg.EnableFPC)
	return nil
}

// Stop freezes ingestion; existing state is preserved and reads remain
// valid. A later Start resumes ingestion and re-inserts the genesis entry
// as Accepted.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = false
	e.cfg.Logger.Info("quasar engine stopped", "height", e.height)
}

// SetCryptoProvider wires the classical signing collaborator the certifier
// uses to aggregate votes into a Certificate. May be called before or after
// Start; it takes effect on the next certify call.
func (e *Engine) SetCryptoProvider(classical CryptoProvider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cert = newQuasarCertifier(classical, e.cfg.QuantumResistant, e.cfg.quorum())
}

// AddValidator registers (id, weight) as an active validator and, per
// spec.md §6's operation table, never fails — it may be called before or
// after Start.
func (e *Engine) AddValidator(id Identifier, weight uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validators[id] = Validator{ID: id, Weight: weight, Active: true}
	e.photon.addPeer(id)
}

// Add registers a new block as Processing. Re-adding a known block id is a
// no-op returning nil; the core performs no structural validation of the
// block (that is a host-binding concern, spec.md §3).
func (e *Engine) Add(b Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return ErrNotInitialized
	}
	if _, exists := e.blocks[b.ID]; exists {
		return nil
	}
	e.blocks[b.ID] = &blockEntry{block: b, status: StatusProcessing, addedAt: time.Now()}
	return nil
}

// RecordVote delegates v to Wave; on a just-decided event, promotes the
// block's status and, for Accept, invokes the certifier (spec.md §4.6).
// Returns ErrBlockNotFound if v targets an unknown block.
func (e *Engine) RecordVote(v Vote) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.recordVoteLocked(v)
	return err
}

// RecordVotesBatch applies votes in order and returns how many were applied
// without error; individual failures (e.g. an unknown block) are swallowed
// rather than aborting the batch (spec.md §4.6, "a throughput path, not a
// correctness path"). The dedupe cache skips (block, voter) pairs already
// seen in this or a prior batch call before they reach Wave's exact
// accounting, but only once recordVoteLocked actually applies the vote —
// marking a failed vote (e.g. for a not-yet-added block) as seen would
// permanently drop it even after a later Add, breaking the equivalence with
// sequential RecordVote ingestion that spec.md §5 requires.
func (e *Engine) RecordVotesBatch(votes []Vote) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	success := 0
	for _, v := range votes {
		if e.dedupe.has(v.BlockID, v.Voter) {
			continue
		}
		if _, err := e.recordVoteLocked(v); err == nil {
			success++
			e.dedupe.mark(v.BlockID, v.Voter)
		}
	}
	return success
}

func (e *Engine) recordVoteLocked(v Vote) (Decision, error) {
	if !e.started {
		return DecisionUndecided, ErrNotInitialized
	}
	entry, ok := e.blocks[v.BlockID]
	if !ok {
		return DecisionUndecided, ErrBlockNotFound
	}
	if entry.status != StatusProcessing {
		decision := DecisionUndecided
		switch entry.status {
		case StatusAccepted:
			decision = DecisionAccept
		case StatusRejected:
			decision = DecisionReject
		}
		return decision, nil
	}

	e.stats.VotesProcessed++
	decision, justDecided := e.wave.recordVote(v)
	if !justDecided {
		return decision, nil
	}
	e.stats.PollsCompleted++
	e.applyDecisionLocked(entry, decision)
	return decision, nil
}

func (e *Engine) applyDecisionLocked(entry *blockEntry, decision Decision) {
	elapsed := time.Since(entry.addedAt)
	e.stats.totalDecisionTime += elapsed
	e.stats.decidedBlocks++
	e.stats.AverageDecisionTime = e.stats.totalDecisionTime / time.Duration(e.stats.decidedBlocks)

	ws, _ := e.wave.get(entry.block.ID)

	switch decision {
	case DecisionAccept:
		entry.status = StatusAccepted
		e.stats.BlocksAccepted++
		if entry.block.Height > e.height {
			e.height = entry.block.Height
		}
		for _, v := range ws.Votes {
			if v.Type.IsYes() {
				e.lum.success(v.Voter)
			} else {
				e.lum.failure(v.Voter)
			}
		}
		registered := e.registeredSetLocked()
		if cert, err := e.cert.certify(entry.block.ID, entry.block.Height, ws.Votes, registered); err == nil {
			entry.certified = cert
		}
		e.cfg.Logger.Info("block accepted", "id", entry.block.ID, "height", entry.block.Height)
	case DecisionReject:
		entry.status = StatusRejected
		e.stats.BlocksRejected++
		for _, v := range ws.Votes {
			if !v.Type.IsYes() {
				e.lum.success(v.Voter)
			} else {
				e.lum.failure(v.Voter)
			}
		}
		e.cfg.Logger.Info("block rejected", "id", entry.block.ID)
	}
}

func (e *Engine) registeredSetLocked() mapset.Set[Identifier] {
	s := mapset.NewThreadUnsafeSet[Identifier]()
	for id := range e.validators {
		s.Add(id)
	}
	return s
}

// IsAccepted reports whether id's block has reached StatusAccepted.
func (e *Engine) IsAccepted(id Identifier) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.blocks[id]
	return ok && entry.status == StatusAccepted
}

// GetStatus returns id's current lifecycle Status, or StatusUnknown for an
// unseen block (spec.md §4.6, "pure reads against the status map").
func (e *Engine) GetStatus(id Identifier) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.blocks[id]
	if !ok {
		return StatusUnknown
	}
	return entry.status
}

// Certificate returns the Certificate assembled for an accepted block, if
// one was successfully built (certification can fail with ErrNoQuorum even
// after Wave acceptance, when too few voters were registered validators —
// spec.md §9, "certification failure after acceptance").
func (e *Engine) Certificate(id Identifier) (*Certificate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.blocks[id]
	if !ok {
		return nil, ErrBlockNotFound
	}
	if entry.certified == nil {
		return nil, ErrNoQuorum
	}
	return entry.certified, nil
}

// VerifyCertificate reports whether cert meets the current registered
// validator set's quorum (spec.md §4.6).
func (e *Engine) VerifyCertificate(cert *Certificate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cert.verify(cert, e.registeredSetLocked())
}

// Height returns the highest accepted block height observed so far.
func (e *Engine) Height() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height
}

// Stats returns a snapshot of the engine's run-time counters.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Sample returns up to k validators chosen by the Photon sampler, for
// callers driving their own transport/query round (spec.md §4.2).
func (e *Engine) Sample(k int) []Identifier {
	return e.photon.sample(k)
}

func (e *Engine) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("Engine{height=%d, blocks=%d, validators=%d}", e.height, len(e.blocks), len(e.validators))
}
