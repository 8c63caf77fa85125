// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"bytes"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// CryptoProvider is the signing/verification collaborator the certifier
// delegates to (spec.md §1, §4.5: "the core treats signatures as opaque
// byte strings... deferring cryptographic verification to the provider").
// The core never implements signature math itself; see
// internal/cryptoprovider for the reference implementation.
type CryptoProvider interface {
	// Sign returns this provider's signature over msg.
	Sign(msg []byte) ([]byte, error)
	// Verify reports whether sig is a valid signature by pub over msg.
	Verify(pub, msg, sig []byte) bool
	// Aggregate combines per-signer signatures into one aggregate
	// signature, in signer order.
	Aggregate(sigs [][]byte) ([]byte, error)
	// AggregateVerify reports whether aggSig is valid over msg for the
	// given ordered set of public keys.
	AggregateVerify(pubs [][]byte, msg []byte, aggSig []byte) bool
}

// Certificate is the hybrid classical+post-quantum proof of acceptance
// assembled by quasarCertifier (spec.md §3 data model): `{ block_id,
// height, signers, aggregated_sig, quantum_sigs, timestamp }`. When the
// certifier collects quantum signatures (Config.QuantumResistant), QuantumSigs
// holds one entry per signer rather than an aggregate; otherwise it is nil. The hybrid design
// combines validator votes into a single classical signature but only
// *collects* per-signer post-quantum signatures (spec.md §4.5), since no
// production ML-DSA aggregation scheme is assumed.
type Certificate struct {
	BlockID       Identifier
	Height        uint64
	Signers       []Identifier
	AggregatedSig []byte
	QuantumSigs   [][]byte
	CreatedAt     time.Time
}

// quasarCertifier holds the certification threshold ⌈α·k⌉ (spec.md §4.5);
// the registered-validator set is passed in by the engine on each certify
// and verify call. Grounded on the validator-bookkeeping and threshold-count
// gating in ThresholdCrypto/Slasher (consensus/equa/{threshold,slashing}.go),
// replacing their Shamir/stake-weighted logic with the spec's plain
// distinct-registered-signer quorum.
type quasarCertifier struct {
	classical CryptoProvider
	quantum   bool // collect per-signer QuantumSigs when true
	threshold int
}

func newQuasarCertifier(classical CryptoProvider, quantum bool, threshold int) *quasarCertifier {
	if threshold < 1 {
		threshold = 1
	}
	return &quasarCertifier{classical: classical, quantum: quantum, threshold: threshold}
}

// certify builds a Certificate for (blockID, height) from votes, after
// filtering to votes whose voter is a registered validator and
// deduplicating repeated voters (spec.md §4.5). Returns ErrNoQuorum if
// fewer than threshold distinct registered signers remain, and ErrCrypto if
// classical signature aggregation fails.
func (c *quasarCertifier) certify(blockID Identifier, height uint64, votes []Vote, registered mapset.Set[Identifier]) (*Certificate, error) {
	signerSet := mapset.NewThreadUnsafeSet[Identifier]()
	sigs := make(map[Identifier][]byte)
	for _, v := range votes {
		if v.BlockID != blockID || len(v.Signature) == 0 {
			continue
		}
		if !registered.Contains(v.Voter) {
			continue
		}
		if signerSet.Contains(v.Voter) {
			continue
		}
		signerSet.Add(v.Voter)
		sigs[v.Voter] = v.Signature
	}

	if signerSet.Cardinality() < c.threshold {
		return nil, ErrNoQuorum
	}

	signers := signerSet.ToSlice()
	sort.Slice(signers, func(i, j int) bool { return bytes.Compare(signers[i][:], signers[j][:]) < 0 })
	ordered := make([][]byte, 0, len(signers))
	for _, s := range signers {
		ordered = append(ordered, sigs[s])
	}

	cert := &Certificate{
		BlockID:   blockID,
		Height:    height,
		Signers:   signers,
		CreatedAt: time.Now(),
	}

	if c.classical != nil {
		agg, err := c.classical.Aggregate(ordered)
		if err != nil {
			return nil, ErrCrypto
		}
		cert.AggregatedSig = agg
	}
	if c.quantum {
		cert.QuantumSigs = ordered
	}

	return cert, nil
}

// verify reports whether cert carries at least threshold signers, all of
// them currently registered validators (spec.md §4.5: "|signers| ≥
// threshold and every signer is a current validator"). Cryptographic
// verification of AggregatedSig/QuantumSigs is delegated to the provider
// and is not repeated here.
func (c *quasarCertifier) verify(cert *Certificate, registered mapset.Set[Identifier]) bool {
	if len(cert.Signers) < c.threshold {
		return false
	}
	seen := mapset.NewThreadUnsafeSet[Identifier]()
	for _, s := range cert.Signers {
		if !registered.Contains(s) || seen.Contains(s) {
			return false
		}
		seen.Add(s)
	}
	return true
}
