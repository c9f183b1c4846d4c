// Package gascounter estimates the L1 gas needed to commit and verify a
// block and decides whether one more operation still fits in it.
package gascounter

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/operation"
)

const (
	// TxGasLimit is the default gas ceiling of one L1 transaction
	TxGasLimit uint64 = 4_000_000

	// MaxWithdrawalsToCompleteInACall is the number of pending
	// withdrawals completed by one L1 call
	MaxWithdrawalsToCompleteInACall = 10

	// CompleteWithdrawalsBaseCost is the fixed gas of completing
	// withdrawals
	CompleteWithdrawalsBaseCost uint64 = 30_307
	// CompleteWithdrawalsCost is the gas of completing one ETH withdrawal
	CompleteWithdrawalsCost uint64 = 41_641
	// CompleteWithdrawalsERC20Cost is the gas of completing one ERC20
	// withdrawal
	CompleteWithdrawalsERC20Cost uint64 = 200_000

	// BaseCommitBlocksTxCost is the fixed gas of an aggregated commit
	BaseCommitBlocksTxCost uint64 = 450_000
	// BaseExecuteBlocksTxCost is the fixed gas of an aggregated execute
	BaseExecuteBlocksTxCost uint64 = 450_000
	// BaseProofBlocksTxCost is the gas of an aggregated proof
	BaseProofBlocksTxCost uint64 = 1_500_000

	scaleNumerator   = 130
	scaleDenominator = 100
)

// Commit gas costs
const (
	CommitBaseCost                 uint64 = 40_000
	CommitDepositCost              uint64 = 7_000
	CommitChangePubKeyCostOffchain uint64 = 11_050
	CommitChangePubKeyCostOnchain  uint64 = 4_000
	CommitTransferCost             uint64 = 250
	CommitExchangeCost             uint64 = 250
	CommitAddLiquidityCost         uint64 = 250
	CommitRemoveLiquidityCost      uint64 = 250
	CommitTransferToNewCost        uint64 = 780
	CommitFullExitCost             uint64 = 7_000
	CommitWithdrawCost             uint64 = 3_500
	CommitForcedExitCost                  = CommitWithdrawCost
)

// Verify gas costs
const (
	VerifyBaseCost       uint64 = 10_000
	VerifyDepositCost    uint64 = 50
	VerifyFullExitCost   uint64 = 30_000
	VerifyWithdrawCost   uint64 = 48_000
	VerifyForcedExitCost        = VerifyWithdrawCost
)

// Block is a sealed block with its estimated gas limits
type Block interface {
	CommitGasLimit() uint64
	VerifyGasLimit() uint64
}

// CommitCost returns the commit gas of op. It panics for Close, which can
// not be part of a new block.
func CommitCost(op operation.Op) uint64 {
	switch o := op.(type) {
	case *operation.NoopOp:
		return 0
	case *operation.DepositOp:
		return CommitDepositCost
	case *operation.ChangePubKeyOp:
		if o.Tx.AuthType() == common.ChangePubKeyAuthECDSA {
			return CommitChangePubKeyCostOffchain
		}
		return CommitChangePubKeyCostOnchain
	case *operation.TransferOp:
		return CommitTransferCost
	case *operation.ExchangeOp:
		return CommitExchangeCost
	case *operation.AddLiquidityOp:
		return CommitAddLiquidityCost
	case *operation.RemoveLiquidityOp:
		return CommitRemoveLiquidityCost
	case *operation.TransferToNewOp:
		return CommitTransferToNewCost
	case *operation.FullExitOp:
		return CommitFullExitCost
	case *operation.WithdrawOp:
		return CommitWithdrawCost
	case *operation.ForcedExitOp:
		return CommitForcedExitCost
	case *operation.CloseOp:
		panic("gas cost of a Close operation: Close operations are disabled")
	default:
		panic(fmt.Sprintf("gas cost of unknown operation %T", op))
	}
}

// VerifyCost returns the verify gas of op. It panics for Close, which can
// not be part of a new block.
func VerifyCost(op operation.Op) uint64 {
	switch op.(type) {
	case *operation.NoopOp, *operation.ChangePubKeyOp, *operation.TransferOp,
		*operation.ExchangeOp, *operation.AddLiquidityOp, *operation.RemoveLiquidityOp,
		*operation.TransferToNewOp:
		return 0
	case *operation.DepositOp:
		return VerifyDepositCost
	case *operation.FullExitOp:
		return VerifyFullExitCost
	case *operation.WithdrawOp:
		return VerifyWithdrawCost
	case *operation.ForcedExitOp:
		return VerifyForcedExitCost
	case *operation.CloseOp:
		panic("gas cost of a Close operation: Close operations are disabled")
	default:
		panic(fmt.Sprintf("gas cost of unknown operation %T", op))
	}
}

// GasCounter accumulates the commit and verify costs of the operations of
// the block being built
type GasCounter struct {
	limit      uint64
	commitCost uint64
	verifyCost uint64
}

// NewGasCounter returns a counter for an empty block with the default
// TxGasLimit
func NewGasCounter() *GasCounter {
	return NewGasCounterWithLimit(TxGasLimit)
}

// NewGasCounterWithLimit returns a counter for an empty block that rejects
// operations once a scaled cost goes over limit
func NewGasCounterWithLimit(limit uint64) *GasCounter {
	return &GasCounter{
		limit:      limit,
		commitCost: CommitBaseCost,
		verifyCost: VerifyBaseCost,
	}
}

// AddOp adds the costs of op to the block. It returns false, leaving the
// counter untouched, if either scaled cost would go over the limit: op has
// to go in the next block.
func (gc *GasCounter) AddOp(op operation.Op) bool {
	newCommitCost := gc.commitCost + CommitCost(op)
	if scaleUp(newCommitCost) > gc.limit {
		log.Debugw("gascounter: commit gas limit reached", "op", op.Type(),
			"commitCost", newCommitCost, "limit", gc.limit)
		return false
	}
	newVerifyCost := gc.verifyCost + VerifyCost(op)
	if scaleUp(newVerifyCost) > gc.limit {
		log.Debugw("gascounter: verify gas limit reached", "op", op.Type(),
			"verifyCost", newVerifyCost, "limit", gc.limit)
		return false
	}
	gc.commitCost = newCommitCost
	gc.verifyCost = newVerifyCost
	return true
}

// CommitGasLimit returns the scaled commit cost of the block
func (gc *GasCounter) CommitGasLimit() uint64 {
	return scaleUp(gc.commitCost)
}

// VerifyGasLimit returns the scaled verify cost of the block
func (gc *GasCounter) VerifyGasLimit() uint64 {
	return scaleUp(gc.verifyCost)
}

// Reset prepares the counter for a new empty block
func (gc *GasCounter) Reset() {
	gc.commitCost = CommitBaseCost
	gc.verifyCost = VerifyBaseCost
}

// CompleteWithdrawalsGasLimit returns the gas limit of an L1 call that
// completes MaxWithdrawalsToCompleteInACall ERC20 withdrawals
func CompleteWithdrawalsGasLimit() uint64 {
	return scaleUp(CompleteWithdrawalsBaseCost +
		MaxWithdrawalsToCompleteInACall*CompleteWithdrawalsERC20Cost)
}

// CommitGasLimitAggregated returns the gas limit of committing blocks in one
// L1 transaction
func CommitGasLimitAggregated(blocks []Block) uint64 {
	limit := BaseCommitBlocksTxCost
	for _, b := range blocks {
		limit += b.CommitGasLimit()
	}
	return limit
}

// ExecuteGasLimitAggregated returns the gas limit of executing blocks in one
// L1 transaction
func ExecuteGasLimitAggregated(blocks []Block) uint64 {
	limit := BaseExecuteBlocksTxCost
	for _, b := range blocks {
		limit += b.VerifyGasLimit()
	}
	return limit
}

// ProofGasLimitAggregated returns the gas limit of verifying the aggregated
// proof of blocks, which does not depend on their number
func ProofGasLimitAggregated(blocks []Block) uint64 {
	return BaseProofBlocksTxCost
}

func scaleUp(v uint64) uint64 {
	return v * scaleNumerator / scaleDenominator
}
