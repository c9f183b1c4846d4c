package txprocessor

import (
	"fmt"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"
)

// createForcedExitOp resolves the initiator by id and the target by address.
// The target must be locked, and the whole target balance of the token is
// withdrawn.
func (tp *TxProcessor) createForcedExitOp(tx *common.ForcedExit) (*operation.ForcedExitOp, error) {
	if err := checkTokenIDs(tx.Token); err != nil {
		return nil, common.Wrap(err)
	}
	if tx.Target == common.EmptyAddr {
		return nil, common.Wrap(fmt.Errorf("%w: forced exit target", common.ErrZeroAddress))
	}
	if err := tp.checkTimeRange(tx.TimeRange); err != nil {
		return nil, common.Wrap(err)
	}
	if err := tx.CheckCorrectness(); err != nil {
		return nil, common.Wrap(err)
	}
	initiator, err := tp.ledger.GetAccount(tx.InitiatorAccountID)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if err := tp.checkSigner(tx, initiator); err != nil {
		return nil, common.Wrap(err)
	}

	targetID, target, err := tp.ledger.GetAccountByAddress(tx.Target)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if !target.IsLocked() {
		return nil, common.Wrap(fmt.Errorf("%w: %s", ErrTargetNotLocked, tx.Target.Hex()))
	}
	return &operation.ForcedExitOp{
		Tx:              tx,
		TargetAccountID: targetID,
		WithdrawAmount:  target.GetBalance(tx.Token),
	}, nil
}

func (tp *TxProcessor) applyForcedExitTx(tx *common.ForcedExit) (*OpSuccess, error) {
	op, err := tp.createForcedExitOp(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	fee, updates, err := tp.applyForcedExitOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &OpSuccess{Fee: fee, Updates: updates, ExecutedOp: op}, nil
}

// applyForcedExitOp charges the fee to the initiator, incrementing its nonce,
// and debits the withdrawn amount from the target, whose nonce is unchanged
func (tp *TxProcessor) applyForcedExitOp(op *operation.ForcedExitOp) (*common.CollectedFee,
	[]common.AccountUpdate, error) {
	tx := op.Tx
	initiatorID, targetID := tx.InitiatorAccountID, op.TargetAccountID
	if err := checkAccountIDs(initiatorID, targetID); err != nil {
		return nil, nil, common.Wrap(err)
	}
	if initiatorID == targetID {
		return nil, nil, common.Wrap(fmt.Errorf("%w: forced exit initiator is the target",
			ErrTargetNotLocked))
	}
	initiator, err := tp.getAccount(initiatorID)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	target, err := tp.getAccount(targetID)
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	if target.Address != tx.Target {
		return nil, nil, common.Wrap(fmt.Errorf("%w: target %d is %s, tx names %s",
			ErrAddressMismatch, targetID, target.Address.Hex(), tx.Target.Hex()))
	}
	if err := checkNonce(initiator, tx.Nonce); err != nil {
		return nil, nil, common.Wrap(err)
	}

	initiatorOldBalance := initiator.GetBalance(tx.Token)
	initiatorOldNonce := initiator.Nonce
	if err := initiator.SubBalance(tx.Token, tx.Fee); err != nil {
		return nil, nil, common.Wrap(err)
	}
	initiator.Nonce++

	amount := op.WithdrawAmount
	if amount == nil {
		amount = target.GetBalance(tx.Token)
	}
	targetOldBalance := target.GetBalance(tx.Token)
	if err := target.SubBalance(tx.Token, amount); err != nil {
		return nil, nil, common.Wrap(err)
	}

	updates := []common.AccountUpdate{
		common.NewBalanceUpdate(initiatorID, tx.Token, initiatorOldBalance,
			initiator.GetBalance(tx.Token), initiatorOldNonce, initiator.Nonce),
		common.NewBalanceUpdate(targetID, tx.Token, targetOldBalance,
			target.GetBalance(tx.Token), target.Nonce, target.Nonce),
	}
	if err := tp.ledger.InsertAccount(initiatorID, initiator); err != nil {
		return nil, nil, common.Wrap(err)
	}
	if err := tp.ledger.InsertAccount(targetID, target); err != nil {
		return nil, nil, common.Wrap(err)
	}
	return common.NewCollectedFee(tx.Token, tx.Fee), updates, nil
}
