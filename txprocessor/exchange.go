package txprocessor

import (
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createExchangeOp resolves the sender, which is both sides of the exchange
func (tp *TxProcessor) createExchangeOp(tx *common.Exchange) (*operation.ExchangeOp, error) {
	if err := checkTokenIDs(tx.TokenA, tx.TokenB); err != nil {
		return nil, common.Wrap(err)
	}
	if err := tp.checkTimeRange(tx.TimeRange); err != nil {
		return nil, common.Wrap(err)
	}
	from, _, err := tp.resolveSigner(tx, tx.From, tx.AccountID)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &operation.ExchangeOp{Tx: tx, From: from, To: from}, nil
}

func (tp *TxProcessor) applyExchangeTx(tx *common.Exchange) (*OpSuccess, error) {
	op, err := tp.createExchangeOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyExchangeOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyExchangeOp debits AmountA + Fee of TokenA and credits AmountB of
// TokenB.  The fee is paid in TokenA.
func (tp *TxProcessor) applyExchangeOp(op *operation.ExchangeOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	tx := op.Tx
	updates, err := tp.moveBalance(op.From, op.To, tx.Nonce,
		tx.TokenA, sum(tx.AmountA, tx.Fee), tx.TokenB, tx.AmountB)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(tx.TokenA, tx.Fee), updates, nil
}
