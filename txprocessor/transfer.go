package txprocessor

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createTransferOp returns a TransferOp when the recipient already has an
// account, and a TransferToNewOp to the next free id otherwise
func (tp *TxProcessor) createTransferOp(tx *common.Transfer) (operation.Op, error) {
	if err := checkTokenIDs(tx.Token); err != nil {
		return nil, common.Wrap(err)
	}
	if tx.To == common.EmptyAddr {
		return nil, common.Wrap(fmt.Errorf("%w: transfer recipient", common.ErrZeroAddress))
	}
	if err := tp.checkTimeRange(tx.TimeRange); err != nil {
		return nil, common.Wrap(err)
	}
	from, _, err := tp.resolveSigner(tx, tx.From, tx.AccountID)
	if err != nil {
		return nil, common.Wrap(err)
	}
	to, _, err := tp.ledger.GetAccountByAddress(tx.To)
	if common.Is(err, common.ErrAccountNotFound) {
		return &operation.TransferToNewOp{Tx: tx, From: from,
			To: tp.ledger.NextFreeAccountID()}, nil
	} else if err != nil {
		return nil, common.Wrap(err)
	}
	return &operation.TransferOp{Tx: tx, From: from, To: to}, nil
}

func (tp *TxProcessor) applyTransferTx(tx *common.Transfer) (*OpSuccess, error) {
	op, err := tp.createTransferOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.ApplyOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyTransferOp moves amount from the sender to the recipient, the sender
// pays amount + fee
func (tp *TxProcessor) applyTransferOp(op *operation.TransferOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	tx := op.Tx
	updates, err := tp.moveBalance(op.From, op.To, tx.Nonce,
		tx.Token, sum(tx.Amount, tx.Fee), tx.Token, tx.Amount)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(tx.Token, tx.Fee), updates, nil
}

// applyTransferToNewOp creates the recipient account and then applies the
// transfer.  The Create update is first in the returned list.
func (tp *TxProcessor) applyTransferToNewOp(op *operation.TransferToNewOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	tx := op.Tx
	if err := checkAccountIDs(op.From, op.To); err != nil {
		return nil, nil, common.Wrap(err)
	}
	exists, err := tp.accountExists(op.To)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	if exists {
		return nil, nil, common.Wrap(fmt.Errorf("%w: %d", ErrAccountAlreadyExists, op.To))
	}
	fromAccount, err := tp.getAccount(op.From)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	if err := checkNonce(fromAccount, tx.Nonce); err != nil {
		return nil, nil, common.Wrap(err)
	}
	debit := sum(tx.Amount, tx.Fee)
	if fromAccount.GetBalance(tx.Token).Cmp(debit) < 0 {
		return nil, nil, common.Wrap(fmt.Errorf("%w: token %d has %s, needs %s",
			common.ErrNotEnoughBalance, tx.Token, fromAccount.GetBalance(tx.Token), debit))
	}

	toAccount := common.NewAccount(tx.To)
	if err := tp.ledger.InsertAccount(op.To, toAccount); err != nil {
		return nil, nil, common.Wrap(err)
	}
	updates := []common.AccountUpdate{
		common.NewCreateUpdate(op.To, toAccount.Address, toAccount.Nonce),
	}
	moved, err := tp.moveBalance(op.From, op.To, tx.Nonce, tx.Token, debit, tx.Token, tx.Amount)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(tx.Token, tx.Fee), append(updates, moved...), nil
}
