package txprocessor

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createLiquidityOp checks a liquidity tx and resolves its sender, which is
// both sides of the operation
func (tp *TxProcessor) createLiquidityOp(tx common.L2Tx, l *common.LiquidityTx) (common.AccountID,
	error) {
	if err := checkTokenIDs(l.Token); err != nil {
		return 0, common.Wrap(err)
	}
	if l.To == common.EmptyAddr {
		return 0, common.Wrap(fmt.Errorf("%w: %s recipient", common.ErrZeroAddress, tx.Type()))
	}
	if err := tp.checkTimeRange(l.TimeRange); err != nil {
		return 0, common.Wrap(err)
	}
	from, _, err := tp.resolveSigner(tx, l.From, l.AccountID)
	if err != nil {
		return 0, common.Wrap(err)
	}
	return from, nil
}

// applyLiquidityOp debits AmountADesired + FeeA and credits AmountBDesired,
// all in the token of the tx, which also pays the fee
func (tp *TxProcessor) applyLiquidityOp(from, to common.AccountID, l *common.LiquidityTx) (
	*common.CollectedFee, []common.AccountUpdate, error) {
	updates, err := tp.moveBalance(from, to, l.Nonce,
		l.Token, sum(l.AmountADesired, l.FeeA), l.Token, l.AmountBDesired)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(l.Token, l.FeeA), updates, nil
}

func (tp *TxProcessor) createAddLiquidityOp(tx *common.AddLiquidity) (*operation.AddLiquidityOp, error) {
	from, err := tp.createLiquidityOp(tx, &tx.LiquidityTx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &operation.AddLiquidityOp{Tx: tx, From: from, To: from}, nil
}

func (tp *TxProcessor) applyAddLiquidityTx(tx *common.AddLiquidity) (*OpSuccess, error) {
	op, err := tp.createAddLiquidityOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyAddLiquidityOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

func (tp *TxProcessor) applyAddLiquidityOp(op *operation.AddLiquidityOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	return tp.applyLiquidityOp(op.From, op.To, &op.Tx.LiquidityTx)
}

func (tp *TxProcessor) createRemoveLiquidityOp(tx *common.RemoveLiquidity) (
	*operation.RemoveLiquidityOp, error) {
	from, err := tp.createLiquidityOp(tx, &tx.LiquidityTx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &operation.RemoveLiquidityOp{Tx: tx, From: from, To: from}, nil
}

func (tp *TxProcessor) applyRemoveLiquidityTx(tx *common.RemoveLiquidity) (*OpSuccess, error) {
	op, err := tp.createRemoveLiquidityOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyRemoveLiquidityOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

func (tp *TxProcessor) applyRemoveLiquidityOp(op *operation.RemoveLiquidityOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	return tp.applyLiquidityOp(op.From, op.To, &op.Tx.LiquidityTx)
}
