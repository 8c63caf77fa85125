// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import "errors"

var (
	// ErrNotInitialized is returned by mutating operations called before
	// Start.
	ErrNotInitialized = errors.New("quasar: engine not initialized")

	// ErrAlreadyStarted is returned by Start when called on an already
	// started engine.
	ErrAlreadyStarted = errors.New("quasar: engine already started")

	// ErrBlockNotFound is returned when voting or querying an unknown
	// block id.
	ErrBlockNotFound = errors.New("quasar: block not found")

	// ErrNoQuorum is returned by the certifier when too few
	// validator-identified voters remain to meet the certification
	// threshold.
	ErrNoQuorum = errors.New("quasar: insufficient validator votes for certificate")

	// ErrInvalidBlock, ErrInvalidVote and ErrInvalidSignature are reserved
	// for structural validation performed by host-language bindings; the
	// core itself never raises them.
	ErrInvalidBlock     = errors.New("quasar: invalid block")
	ErrInvalidVote      = errors.New("quasar: invalid vote")
	ErrInvalidSignature = errors.New("quasar: invalid signature")

	// ErrAlreadyVoted marks an internally detected duplicate vote. Wave
	// never returns this error to callers — it drops the duplicate vote
	// silently per spec.md §9 — but it is exposed so tests and
	// observability hooks can distinguish the case from other no-ops.
	ErrAlreadyVoted = errors.New("quasar: voter already voted for this block")

	// ErrTimeout and ErrNetwork are reserved for the excluded transport
	// collaborator; the core never produces them itself. ErrCrypto is
	// returned by the certifier when the cryptographic provider fails to
	// aggregate signatures.
	ErrTimeout = errors.New("quasar: timeout")
	ErrNetwork = errors.New("quasar: network error")
	ErrCrypto  = errors.New("quasar: crypto error")
)
