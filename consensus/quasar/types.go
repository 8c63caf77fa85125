// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package quasar implements the Quasar consensus core: a leaderless,
// sampling-based voting engine built from five cooperating sub-protocols —
// Wave (threshold voting), FPC (phase-dependent adaptive threshold), Photon
// (luminance-weighted peer sampling), Focus (consecutive-round confidence
// accumulator) and Quasar (hybrid certificate assembly).
package quasar

import (
	"encoding/hex"
	"time"
)

// IdentifierSize is the fixed byte length of an Identifier.
const IdentifierSize = 32

// Identifier is a fixed 32-byte opaque value used for block and voter IDs.
// Equality and hashing are byte-wise, matching the Go [32]byte zero value
// semantics; it is immutable once constructed.
type Identifier [IdentifierSize]byte

// Empty is the distinguished all-zero identifier denoting genesis.
var Empty Identifier

// IsEmpty reports whether id is the all-zero genesis identifier.
func (id Identifier) IsEmpty() bool { return id == Empty }

// String renders id as a lowercase hex string.
func (id Identifier) String() string { return hex.EncodeToString(id[:]) }

// IdentifierFromBytes copies up to IdentifierSize bytes of b into a new
// Identifier, zero-padding on the right if b is shorter.
func IdentifierFromBytes(b []byte) Identifier {
	var id Identifier
	copy(id[:], b)
	return id
}

// VoteType classifies a cast vote.
type VoteType uint8

const (
	// Preference and Commit both count as "prefer" (yes).
	VotePreference VoteType = iota
	VoteCommit
	// Cancel counts as "oppose" (no).
	VoteCancel
)

func (vt VoteType) String() string {
	switch vt {
	case VotePreference:
		return "Preference"
	case VoteCommit:
		return "Commit"
	case VoteCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// IsYes reports whether vt counts toward the "prefer" side of a round.
func (vt VoteType) IsYes() bool { return vt == VotePreference || vt == VoteCommit }

// Status is the lifecycle state of a block as seen by the engine.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusProcessing
	StatusAccepted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "Processing"
	case StatusAccepted:
		return "Accepted"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Decision is the terminal outcome of a Wave or Focus state machine.
type Decision uint8

const (
	DecisionUndecided Decision = iota
	DecisionAccept
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "Accept"
	case DecisionReject:
		return "Reject"
	default:
		return "Undecided"
	}
}

// Block is the unit the engine decides on. Payload is opaque to the core;
// the caller is responsible for any chain-level validation of Height
// against ParentID (spec.md §3: "height... is not validated against parent
// by the core").
type Block struct {
	ID        Identifier
	ParentID  Identifier
	Height    uint64
	Payload   []byte
	Timestamp time.Time
}

// Vote is a single signed ballot cast by a voter for a block. Signature is
// treated as opaque bytes by the core; cryptographic verification is
// delegated to an external provider (spec.md §1).
type Vote struct {
	BlockID   Identifier
	Type      VoteType
	Voter     Identifier
	Signature []byte
	Timestamp time.Time
}

// Validator is a member of the validator set. Weight is stored but not
// read by the Photon sampler, which weights peers by luminance; Wave's
// quorum logic counts distinct voters, not weight (spec.md §9,
// "Weight-agnostic quorum").
type Validator struct {
	ID     Identifier
	Weight uint64
	Active bool
}
