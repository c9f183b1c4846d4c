package txprocessor

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createChangePubKeyOp resolves the account by address.  The account may be
// locked: the tx is signed by the new key and authorized on L1 by the owner
// of the address, which CheckCorrectness verifies.
func (tp *TxProcessor) createChangePubKeyOp(tx *common.ChangePubKey) (*operation.ChangePubKeyOp, error) {
	if err := checkTokenIDs(tx.FeeToken); err != nil {
		return nil, common.Wrap(err)
	}
	if err := tp.checkTimeRange(tx.TimeRange); err != nil {
		return nil, common.Wrap(err)
	}
	if err := tx.CheckCorrectness(); err != nil {
		return nil, common.Wrap(err)
	}
	id, _, err := tp.ledger.GetAccountByAddress(tx.Account)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if id != tx.AccountID {
		return nil, common.Wrap(fmt.Errorf("%w: tx declares %d, account is %d",
			ErrAccountIDMismatch, tx.AccountID, id))
	}
	return &operation.ChangePubKeyOp{Tx: tx, AccountID: id}, nil
}

func (tp *TxProcessor) applyChangePubKeyTx(tx *common.ChangePubKey) (*OpSuccess, error) {
	op, err := tp.createChangePubKeyOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyChangePubKeyOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyChangePubKeyOp sets the new key hash and increments the nonce, then
// charges the fee.  It returns the ChangePubKeyHash update followed by the
// fee balance update.
func (tp *TxProcessor) applyChangePubKeyOp(op *operation.ChangePubKeyOp) (*common.CollectedFee,
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

	oldPubKeyHash := account.PubKeyHash
	oldNonce := account.Nonce
	oldBalance := account.GetBalance(tx.FeeToken)
	if err := account.SubBalance(tx.FeeToken, tx.Fee); err != nil {
		return nil, nil, common.Wrap(err)
	}
	account.PubKeyHash = tx.NewPubKeyHash
	account.Nonce++

	updates := []common.AccountUpdate{
		common.NewChangePubKeyHashUpdate(op.AccountID, oldPubKeyHash, account.PubKeyHash,
			oldNonce, account.Nonce),
		common.NewBalanceUpdate(op.AccountID, tx.FeeToken, oldBalance,
			account.GetBalance(tx.FeeToken), account.Nonce, account.Nonce),
	}
	if err := tp.ledger.InsertAccount(op.AccountID, account); err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(tx.FeeToken, tx.Fee), updates, nil
}
