package txprocessor

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

func (tp *TxProcessor) createWithdrawOp(tx *common.Withdraw) (*operation.WithdrawOp, error) {
	if err := checkTokenIDs(tx.Token); err != nil {
		return nil, common.Wrap(err)
	}
	if tx.To == common.EmptyAddr {
		return nil, common.Wrap(fmt.Errorf("%w: withdraw recipient", common.ErrZeroAddress))
	}
	if err := tp.checkTimeRange(tx.TimeRange); err != nil {
		return nil, common.Wrap(err)
	}
	id, _, err := tp.resolveSigner(tx, tx.From, tx.AccountID)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &operation.WithdrawOp{Tx: tx, AccountID: id}, nil
}

func (tp *TxProcessor) applyWithdrawTx(tx *common.Withdraw) (*OpSuccess, error) {
	op, err := tp.createWithdrawOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyWithdrawOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyWithdrawOp debits amount + fee from the account.  The amount leaves
// L2 through the withdrawal data of the operation.
func (tp *TxProcessor) applyWithdrawOp(op *operation.WithdrawOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	tx := op.Tx
	if err := checkAccountIDs(op.AccountID); err != nil {
		return nil, nil, common.Wrap(err)
	}
	account, err := tp.getAccount(op.AccountID)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	if err := checkNonce(account, tx.Nonce); err != nil {
		return nil, nil, common.Wrap(err)
	}
	oldBalance := account.GetBalance(tx.Token)
	oldNonce := account.Nonce
	if err := account.SubBalance(tx.Token, sum(tx.Amount, tx.Fee)); err != nil {
		return nil, nil, common.Wrap(err)
	}
	account.Nonce++
	updates := []common.AccountUpdate{
		common.NewBalanceUpdate(op.AccountID, tx.Token, oldBalance, account.GetBalance(tx.Token),
			oldNonce, account.Nonce),
	}
	if err := tp.ledger.InsertAccount(op.AccountID, account); err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(tx.Token, tx.Fee), updates, nil
}
