// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package quasar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain asserts the core's "no background goroutine" invariant
// (spec.md §5): nothing exercised by this package's tests may leak a
// goroutine past the test run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testEngine(t *testing.T, k int, alpha float64, beta int) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.K = k
	cfg.Alpha = alpha
	cfg.Beta = beta
	eng, err := Create(cfg)
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	return eng
}

// TestEngineFastAcceptTestnet is spec.md §8 scenario 1.
func TestEngineFastAcceptTestnet(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	block := Block{ID: IdentifierFromBytes([]byte{0x01}), ParentID: Empty, Height: 1}
	require.NoError(t, eng.Add(block))

	for i := byte(0); i < 5; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: voter(i)}))
	}

	assert.True(t, eng.IsAccepted(block.ID))
	assert.Equal(t, StatusAccepted, eng.GetStatus(block.ID))
	assert.Equal(t, uint64(1), eng.Height())
}

// TestEngineRejectOnOpposition is spec.md §8 scenario 2.
func TestEngineRejectOnOpposition(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	block := Block{ID: IdentifierFromBytes([]byte{0x02}), ParentID: Empty, Height: 1}
	require.NoError(t, eng.Add(block))

	for i := byte(0); i < 5; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VoteCancel, Voter: voter(i)}))
	}

	assert.Equal(t, StatusRejected, eng.GetStatus(block.ID))
	assert.Equal(t, uint64(0), eng.Height())
}

// TestEngineUncertainZone is spec.md §8 scenario 3.
func TestEngineUncertainZone(t *testing.T) {
	eng := testEngine(t, 10, 0.7, 3)
	block := Block{ID: IdentifierFromBytes([]byte{0x03}), ParentID: Empty, Height: 1}
	require.NoError(t, eng.Add(block))

	for i := byte(0); i < 5; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: voter(i)}))
	}
	for i := byte(10); i < 15; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VoteCancel, Voter: voter(i)}))
	}

	assert.Equal(t, StatusProcessing, eng.GetStatus(block.ID))
	s, ok := eng.wave.get(block.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(0), s.Confidence)
	assert.False(t, s.Decided)
}

// TestEngineDuplicateVoterIgnored is spec.md §8 scenario 4, using an
// explicit beta=1 config: the testnet preset's beta=5 cannot be reconciled
// with this scenario's single threshold-reaching round (see DESIGN.md,
// "Open Question decisions").
func TestEngineDuplicateVoterIgnored(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	block := Block{ID: IdentifierFromBytes([]byte{0x04}), ParentID: Empty, Height: 1}
	require.NoError(t, eng.Add(block))

	v := voter(0)
	require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: v}))
	require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: v}))
	for i := byte(1); i < 5; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: voter(i)}))
	}

	s, ok := eng.wave.get(block.ID)
	require.True(t, ok)
	assert.Equal(t, 5, s.YesCount)
	assert.Len(t, s.Votes, 5)
	assert.Equal(t, StatusAccepted, eng.GetStatus(block.ID))
}

// TestEngineUnknownBlockVote is spec.md §8 scenario 5.
func TestEngineUnknownBlockVote(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	err := eng.RecordVote(Vote{BlockID: IdentifierFromBytes([]byte{0xFF}), Type: VotePreference, Voter: voter(0)})
	assert.ErrorIs(t, err, ErrBlockNotFound)
	assert.Equal(t, StatusUnknown, eng.GetStatus(IdentifierFromBytes([]byte{0xFF})))
}

func TestEngineStartTwiceErrors(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	assert.ErrorIs(t, eng.Start(), ErrAlreadyStarted)
}

func TestEngineGenesisAcceptedOnStart(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	assert.True(t, eng.IsAccepted(Empty))
	assert.Equal(t, StatusAccepted, eng.GetStatus(Empty))
}

func TestEngineAddBeforeStartErrors(t *testing.T) {
	eng, err := Create(DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, eng.Add(Block{ID: voter(0)}), ErrNotInitialized)
}

func TestEngineAddValidatorNeverFailsBeforeStart(t *testing.T) {
	eng, err := Create(DefaultConfig())
	require.NoError(t, err)
	eng.AddValidator(voter(0), 10)
	require.NoError(t, eng.Start())
	assert.True(t, eng.IsAccepted(Empty))
}

func TestEngineAddingSameBlockTwiceIsANoOp(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	block := Block{ID: IdentifierFromBytes([]byte("b")), Height: 1}
	require.NoError(t, eng.Add(block))
	require.NoError(t, eng.Add(Block{ID: block.ID, Height: 99}))

	assert.Equal(t, StatusProcessing, eng.GetStatus(block.ID))
}

func TestEngineRecordVotesBatchDedupesAcrossCalls(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	block := Block{ID: IdentifierFromBytes([]byte("b4")), Height: 1}
	require.NoError(t, eng.Add(block))

	v := Vote{BlockID: block.ID, Type: VotePreference, Voter: voter(0)}
	n := eng.RecordVotesBatch([]Vote{v, v, v})
	assert.Equal(t, 1, n, "the dedupe cache must collapse repeats within and across batch calls")

	n = eng.RecordVotesBatch([]Vote{v})
	assert.Equal(t, 0, n, "a pair applied by an earlier batch call must be skipped")

	s, _ := eng.wave.get(block.ID)
	assert.Equal(t, 1, s.YesCount)
}

func TestEngineRecordVotesBatchSwallowsUnknownBlock(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	n := eng.RecordVotesBatch([]Vote{{BlockID: IdentifierFromBytes([]byte("ghost")), Type: VotePreference, Voter: voter(0)}})
	assert.Equal(t, 0, n)
}

// TestEngineRecordVotesBatchRetriesAfterBlockIsAdded guards against the
// dedupe cache permanently swallowing a vote whose block did not exist yet
// at the time of its first (failed) batch submission: resubmitting it once
// the block has been Add-ed must succeed, matching what a sequential
// RecordVote would have done (spec.md §5, batch/sequential equivalence).
func TestEngineRecordVotesBatchRetriesAfterBlockIsAdded(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	block := IdentifierFromBytes([]byte("late-block"))
	v := Vote{BlockID: block, Type: VotePreference, Voter: voter(0)}

	n := eng.RecordVotesBatch([]Vote{v})
	assert.Equal(t, 0, n, "the block does not exist yet, so this vote must fail")

	require.NoError(t, eng.Add(Block{ID: block, Height: 1}))

	n = eng.RecordVotesBatch([]Vote{v})
	assert.Equal(t, 1, n, "the same vote must succeed once its block exists")

	s, ok := eng.wave.get(block)
	require.True(t, ok)
	assert.Equal(t, 1, s.YesCount)
}

func TestEngineSampleReflectsAddedValidators(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	for i := byte(0); i < 5; i++ {
		eng.AddValidator(voter(i), 1)
	}
	got := eng.Sample(3)
	assert.Len(t, got, 3)
}

func TestEngineCertificateAfterAcceptance(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	eng.SetCryptoProvider(stubProvider{})
	for i := byte(0); i < 3; i++ {
		eng.AddValidator(voter(i), 1)
	}
	block := Block{ID: IdentifierFromBytes([]byte("b5")), Height: 1}
	require.NoError(t, eng.Add(block))

	for i := byte(0); i < 5; i++ {
		sig := []byte{0}
		if i < 3 {
			sig = []byte{i + 1}
		}
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: voter(i), Signature: sig}))
	}

	cert, err := eng.Certificate(block.ID)
	require.NoError(t, err)
	assert.Equal(t, block.ID, cert.BlockID)
	assert.Len(t, cert.Signers, 3, "only the registered voters (0,1,2) count toward the certificate")
	assert.True(t, eng.VerifyCertificate(cert))
}

func TestEngineCertificateNoQuorumWithoutRegisteredSigners(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	eng.SetCryptoProvider(stubProvider{})
	block := Block{ID: IdentifierFromBytes([]byte("b6")), Height: 1}
	require.NoError(t, eng.Add(block))

	for i := byte(0); i < 5; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: block.ID, Type: VotePreference, Voter: voter(i), Signature: []byte{1}}))
	}

	_, err := eng.Certificate(block.ID)
	assert.ErrorIs(t, err, ErrNoQuorum, "no voter is a registered validator, so certification must fail")
	assert.Equal(t, StatusAccepted, eng.GetStatus(block.ID), "a failed certification must not un-accept the block")
}

func TestEngineStatsTrackAcceptAndReject(t *testing.T) {
	eng := testEngine(t, 5, 0.6, 1)
	accepted := Block{ID: IdentifierFromBytes([]byte("acc")), Height: 1}
	rejected := Block{ID: IdentifierFromBytes([]byte("rej")), Height: 2}
	require.NoError(t, eng.Add(accepted))
	require.NoError(t, eng.Add(rejected))

	for i := byte(0); i < 5; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: accepted.ID, Type: VotePreference, Voter: voter(i)}))
	}
	for i := byte(10); i < 15; i++ {
		require.NoError(t, eng.RecordVote(Vote{BlockID: rejected.ID, Type: VoteCancel, Voter: voter(i)}))
	}

	stats := eng.Stats()
	assert.Equal(t, uint64(1), stats.BlocksAccepted)
	assert.Equal(t, uint64(1), stats.BlocksRejected)
	assert.GreaterOrEqual(t, stats.AverageDecisionTime, time.Duration(0))
}
