package gascounter

import (
	"math/big"
	"testing"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withdrawOp() *operation.WithdrawOp {
	return &operation.WithdrawOp{Tx: &common.Withdraw{Amount: big.NewInt(1), Fee: big.NewInt(0)}}
}

func TestOpCosts(t *testing.T) {
	cpk := func(authType common.ChangePubKeyAuthType) *operation.ChangePubKeyOp {
		return &operation.ChangePubKeyOp{Tx: &common.ChangePubKey{
			EthAuthData: &common.ChangePubKeyAuthData{Type: authType}}}
	}
	testCases := []struct {
		op     operation.Op
		commit uint64
		verify uint64
	}{
		{&operation.NoopOp{}, 0, 0},
		{&operation.DepositOp{}, 7_000, 50},
		{cpk(common.ChangePubKeyAuthECDSA), 11_050, 0},
		{cpk(common.ChangePubKeyAuthCREATE2), 4_000, 0},
		{&operation.ChangePubKeyOp{Tx: &common.ChangePubKey{}}, 4_000, 0},
		{&operation.TransferOp{}, 250, 0},
		{&operation.ExchangeOp{}, 250, 0},
		{&operation.AddLiquidityOp{}, 250, 0},
		{&operation.RemoveLiquidityOp{}, 250, 0},
		{&operation.TransferToNewOp{}, 780, 0},
		{&operation.FullExitOp{}, 7_000, 30_000},
		{withdrawOp(), 3_500, 48_000},
		{&operation.ForcedExitOp{}, 3_500, 48_000},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.commit, CommitCost(tc.op), tc.op.Type().String())
		assert.Equal(t, tc.verify, VerifyCost(tc.op), tc.op.Type().String())
	}

	assert.Panics(t, func() { CommitCost(&operation.CloseOp{}) })
	assert.Panics(t, func() { VerifyCost(&operation.CloseOp{}) })
}

func TestGasCounter(t *testing.T) {
	gc := NewGasCounter()
	assert.Equal(t, uint64(52_000), gc.CommitGasLimit())
	assert.Equal(t, uint64(13_000), gc.VerifyGasLimit())

	require.True(t, gc.AddOp(&operation.DepositOp{}))
	assert.Equal(t, uint64(61_100), gc.CommitGasLimit())
	assert.Equal(t, uint64(13_065), gc.VerifyGasLimit())

	gc.Reset()
	assert.Equal(t, uint64(52_000), gc.CommitGasLimit())
	assert.Equal(t, uint64(13_000), gc.VerifyGasLimit())
}

func TestGasCounterRejectsOverLimit(t *testing.T) {
	gc := NewGasCounter()
	// (10_000 + n * 48_000) * 1.3 <= 4_000_000 holds up to n = 63
	for i := 0; i < 63; i++ {
		require.True(t, gc.AddOp(withdrawOp()), i)
	}
	commit, verify := gc.CommitGasLimit(), gc.VerifyGasLimit()
	assert.Equal(t, uint64(3_944_200), verify)

	assert.False(t, gc.AddOp(withdrawOp()))
	assert.Equal(t, commit, gc.CommitGasLimit())
	assert.Equal(t, verify, gc.VerifyGasLimit())

	// an operation with no verify cost still fits
	assert.True(t, gc.AddOp(&operation.TransferOp{}))
	assert.Equal(t, verify, gc.VerifyGasLimit())

	small := NewGasCounterWithLimit(60_000)
	assert.True(t, small.AddOp(&operation.TransferOp{}))
	assert.False(t, small.AddOp(&operation.DepositOp{}))
}

type testBlock struct {
	commit, verify uint64
}

func (b testBlock) CommitGasLimit() uint64 { return b.commit }
func (b testBlock) VerifyGasLimit() uint64 { return b.verify }

func TestAggregatedLimits(t *testing.T) {
	assert.Equal(t, uint64(2_639_399), CompleteWithdrawalsGasLimit())

	blocks := []Block{testBlock{100, 10}, testBlock{200, 20}}
	assert.Equal(t, uint64(450_300), CommitGasLimitAggregated(blocks))
	assert.Equal(t, uint64(450_030), ExecuteGasLimitAggregated(blocks))
	assert.Equal(t, uint64(1_500_000), ProofGasLimitAggregated(blocks))
	assert.Equal(t, uint64(450_000), CommitGasLimitAggregated(nil))
}
