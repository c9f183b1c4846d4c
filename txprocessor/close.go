package txprocessor

import (
	"fmt"
	"math/big"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createCloseOp always panics: closing accounts is disabled and no new Close
// operation can be built.  Close operations are decode-only: they are only
// read back from historical blocks and replayed by applyCloseOp.
func (tp *TxProcessor) createCloseOp(tx *common.Close) *operation.CloseOp {
	panic(fmt.Sprintf("attempt to create a disabled Close operation for account %d", tx.AccountID))
}

// applyCloseTx rejects every Close tx
func (tp *TxProcessor) applyCloseTx(tx *common.Close) (*OpSuccess, error) {
	return nil, common.Wrap(fmt.Errorf("%w: account %d", ErrCloseDisabled, tx.AccountID))
}

// applyCloseOp replays a historical Close: the account must hold no balance
// and the nonce must match, then the account is removed
func (tp *TxProcessor) applyCloseOp(op *operation.CloseOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	if err := checkAccountIDs(op.AccountID); err != nil {
		return nil, nil, common.Wrap(err)
	}
	account, err := tp.getAccount(op.AccountID)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	if !account.IsEmpty() {
		return nil, nil, common.Wrap(fmt.Errorf("%w: %d", ErrAccountNotEmpty, op.AccountID))
	}
	var nonce common.Nonce
	if op.Tx != nil {
		nonce = op.Tx.Nonce
	}
	if account.Nonce != nonce {
		return nil, nil, common.Wrap(fmt.Errorf("%w: tx nonce %d, account nonce %d",
			ErrNonceMismatch, nonce, account.Nonce))
	}
	if err := tp.ledger.RemoveAccount(op.AccountID); err != nil {
		return nil, nil, common.Wrap(err)
	}
	updates := []common.AccountUpdate{
		common.NewDeleteUpdate(op.AccountID, account.Address, account.Nonce),
	}
	return common.NewCollectedFee(common.NativeTokenID, big.NewInt(0)), updates, nil
}
