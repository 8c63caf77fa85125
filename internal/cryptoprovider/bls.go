// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package cryptoprovider implements quasar.CryptoProvider. BLSProvider is a
// reference classical-signature implementation using BLS12-381 (the
// ciphersuite every production Avalanche/Ethereum consensus client in the
// retrieval pack settles on). There is no production-grade ML-DSA
// (post-quantum) Go library anywhere in the pack; the post-quantum half of
// a hybrid certificate is not produced here: the certifier fills
// QuantumSigs with each vote's own Signature bytes (see SPEC_FULL.md,
// "DOMAIN STACK").
package cryptoprovider

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

var dst = []byte("QUASAR-V1-BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// ErrInvalidKeyMaterial is returned by NewBLSProvider when ikm is too short
// to seed a secret key.
var ErrInvalidKeyMaterial = errors.New("cryptoprovider: ikm must be at least 32 bytes")

// ErrInvalidSignature is returned by Aggregate when a supplied signature
// fails to decompress or the points fail to aggregate. AggregateVerify
// reports such failures as false instead.
var ErrInvalidSignature = errors.New("cryptoprovider: invalid compressed point")

// BLSProvider signs with min-pubkey-size BLS12-381 (G1 public keys, G2
// signatures) and implements quasar.CryptoProvider.
type BLSProvider struct {
	sk *blst.SecretKey
	pk *blst.P1Affine
}

// NewBLSProvider derives a keypair from ikm, which must be at least 32
// bytes of high-entropy material.
func NewBLSProvider(ikm []byte) (*BLSProvider, error) {
	if len(ikm) < 32 {
		return nil, ErrInvalidKeyMaterial
	}
	sk := blst.KeyGen(ikm)
	pk := new(blst.P1Affine).From(sk)
	return &BLSProvider{sk: sk, pk: pk}, nil
}

// PublicKey returns the provider's compressed G1 public key.
func (p *BLSProvider) PublicKey() []byte {
	return p.pk.Compress()
}

// Sign implements quasar.CryptoProvider.
func (p *BLSProvider) Sign(msg []byte) ([]byte, error) {
	sig := new(blst.P2Affine).Sign(p.sk, msg, dst)
	return sig.Compress(), nil
}

// Verify implements quasar.CryptoProvider.
func (p *BLSProvider) Verify(pub, msg, sig []byte) bool {
	pk := new(blst.P1Affine).Uncompress(pub)
	s := new(blst.P2Affine).Uncompress(sig)
	if pk == nil || s == nil {
		return false
	}
	return s.Verify(true, pk, true, msg, dst)
}

// Aggregate implements quasar.CryptoProvider, combining per-signer
// signatures into a single aggregate G2 point.
func (p *BLSProvider) Aggregate(sigs [][]byte) ([]byte, error) {
	points := make([]*blst.P2Affine, 0, len(sigs))
	for _, s := range sigs {
		pt := new(blst.P2Affine).Uncompress(s)
		if pt == nil {
			return nil, ErrInvalidSignature
		}
		points = append(points, pt)
	}

	var agg blst.P2Aggregate
	if !agg.Aggregate(points, true) {
		return nil, ErrInvalidSignature
	}
	return agg.ToAffine().Compress(), nil
}

// AggregateVerify implements quasar.CryptoProvider for the common case of
// every signer attesting to the same message (one block's acceptance).
func (p *BLSProvider) AggregateVerify(pubs [][]byte, msg []byte, aggSig []byte) bool {
	pks := make([]*blst.P1Affine, 0, len(pubs))
	for _, pub := range pubs {
		pk := new(blst.P1Affine).Uncompress(pub)
		if pk == nil {
			return false
		}
		pks = append(pks, pk)
	}
	sig := new(blst.P2Affine).Uncompress(aggSig)
	if sig == nil {
		return false
	}

	msgs := make([][]byte, len(pks))
	for i := range msgs {
		msgs[i] = msg
	}
	return sig.AggregateVerify(true, pks, true, msgs, dst)
}
