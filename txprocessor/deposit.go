package txprocessor

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createDepositOp resolves the recipient of a deposit, picking the next free
// id when the recipient address has no account yet
func (tp *TxProcessor) createDepositOp(deposit *common.Deposit) (*operation.DepositOp, error) {
	if err := checkTokenIDs(deposit.Token); err != nil {
		return nil, common.Wrap(err)
	}
	if deposit.Amount == nil || !common.IsBalanceInRange(deposit.Amount) {
		return nil, common.Wrap(fmt.Errorf("%w: deposit amount %v", common.ErrNumOverflow,
			deposit.Amount))
	}
	id, _, err := tp.ledger.GetAccountByAddress(deposit.To)
	if common.Is(err, common.ErrAccountNotFound) {
		id = tp.ledger.NextFreeAccountID()
	} else if err != nil {
		return nil, common.Wrap(err)
	}
	return &operation.DepositOp{Priority: deposit, AccountID: id}, nil
}

func (tp *TxProcessor) applyDepositTx(deposit *common.Deposit) (*OpSuccess, error) {
	op, err := tp.createDepositOp(deposit)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyDepositOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyDepositOp credits the deposit, creating the account first when it
// does not exist.  Deposits pay no fee and leave the nonce unchanged.
func (tp *TxProcessor) applyDepositOp(op *operation.DepositOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	if err := checkAccountIDs(op.AccountID); err != nil {
		return nil, nil, common.Wrap(err)
	}
	var updates []common.AccountUpdate
	account, err := tp.getAccount(op.AccountID)
	if common.Is(err, common.ErrAccountNotFound) {
		account = common.NewAccount(op.Priority.To)
		updates = append(updates, common.NewCreateUpdate(op.AccountID, account.Address,
			account.Nonce))
	} else if err != nil {
		return nil, nil, common.Wrap(err)
	}

	oldBalance := account.GetBalance(op.Priority.Token)
	account.AddBalance(op.Priority.Token, op.Priority.Amount)
	newBalance := account.GetBalance(op.Priority.Token)
	if !common.IsBalanceInRange(newBalance) {
		return nil, nil, common.Wrap(fmt.Errorf("%w: balance %s", common.ErrNumOverflow, newBalance))
	}
	updates = append(updates, common.NewBalanceUpdate(op.AccountID, op.Priority.Token,
		oldBalance, newBalance, account.Nonce, account.Nonce))

	if err := tp.ledger.InsertAccount(op.AccountID, account); err != nil {
		return nil, nil, common.Wrap(err)
	}
	return nil, updates, nil
}
