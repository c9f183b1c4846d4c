package txprocessor

import (
	"math/big"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createFullExitOp computes the amount a full exit withdraws: the whole
// balance of the token when the account exists and is owned by the address
// of the request, nothing otherwise
func (tp *TxProcessor) createFullExitOp(fullExit *common.FullExit) (*operation.FullExitOp, error) {
	if err := checkTokenIDs(fullExit.Token); err != nil {
		return nil, common.Wrap(err)
	}
	if err := checkAccountIDs(fullExit.AccountID); err != nil {
		return nil, common.Wrap(err)
	}
	op := &operation.FullExitOp{Priority: fullExit}
	account, err := tp.ledger.GetAccount(fullExit.AccountID)
	if common.Is(err, common.ErrAccountNotFound) {
		return op, nil
	} else if err != nil {
		return nil, common.Wrap(err)
	}
	if account.Address == fullExit.EthAddress {
		op.WithdrawAmount = account.GetBalance(fullExit.Token)
	}
	return op, nil
}

func (tp *TxProcessor) applyFullExitTx(fullExit *common.FullExit) (*OpSuccess, error) {
	op, err := tp.createFullExitOp(fullExit)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyFullExitOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyFullExitOp debits the withdrawn amount.  A full exit of an account
// that does not exist makes no update and is not an error.
func (tp *TxProcessor) applyFullExitOp(op *operation.FullExitOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	if err := checkAccountIDs(op.Priority.AccountID); err != nil {
		return nil, nil, common.Wrap(err)
	}
	account, err := tp.getAccount(op.Priority.AccountID)
	if common.Is(err, common.ErrAccountNotFound) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, common.Wrap(err)
	}
	amount := op.WithdrawAmount
	if amount == nil {
		amount = big.NewInt(0)
	}
	token := op.Priority.Token
	oldBalance := account.GetBalance(token)
	if err := account.SubBalance(token, amount); err != nil {
		return nil, nil, common.Wrap(err)
	}
	updates := []common.AccountUpdate{
		common.NewBalanceUpdate(op.Priority.AccountID, token, oldBalance,
			account.GetBalance(token), account.Nonce, account.Nonce),
	}
	if err := tp.ledger.InsertAccount(op.Priority.AccountID, account); err != nil {
		return nil, nil, common.Wrap(err)
	}
	return nil, updates, nil
}
