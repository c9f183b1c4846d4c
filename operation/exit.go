package operation

import (
	"math/big"
	"tokamak-zkrollup/common"
)

// WithdrawOp moves funds of AccountID to L1
type WithdrawOp struct {
	Tx        *common.Withdraw
	AccountID common.AccountID
}

// Type returns TypeWithdraw
func (op *WithdrawOp) Type() Type { return TypeWithdraw }

// Chunks returns the chunks of a withdraw
func (op *WithdrawOp) Chunks() int { return TypeWithdraw.Chunks() }

func (op *WithdrawOp) isOp() {}

// AccountIDs returns the debited account
func (op *WithdrawOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.AccountID}
}

// PublicData returns [op][accountId 4][token 2][amount 16][fee 2p][to 20]
func (op *WithdrawOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeWithdraw).
		accountID(op.AccountID).
		tokenID(op.Tx.Token).
		fullAmount(op.Tx.Amount).
		packedFee(op.Tx.Fee).
		address(op.Tx.To).
		bytes()
}

func withdrawFromPublicData(b []byte) (*WithdrawOp, error) {
	r, err := newPubDataReader(TypeWithdraw, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &WithdrawOp{Tx: &common.Withdraw{}}
	op.AccountID = r.accountID()
	op.Tx.AccountID = op.AccountID
	op.Tx.Token = r.tokenID()
	op.Tx.Amount = r.fullAmount()
	if op.Tx.Fee, err = r.packedFee(); err != nil {
		return nil, common.Wrap(err)
	}
	op.Tx.To = r.address()
	return op, nil
}

// FullExitOp withdraws the whole balance of a token of an account on an L1
// request. WithdrawAmount is nil when the request could not be executed.
type FullExitOp struct {
	Priority       *common.FullExit
	WithdrawAmount *big.Int
}

// Type returns TypeFullExit
func (op *FullExitOp) Type() Type { return TypeFullExit }

// Chunks returns the chunks of a full exit
func (op *FullExitOp) Chunks() int { return TypeFullExit.Chunks() }

func (op *FullExitOp) isOp() {}

// AccountIDs returns the exited account
func (op *FullExitOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.Priority.AccountID}
}

// PublicData returns [op][accountId 4][ethAddress 20][token 2][amount 16]
func (op *FullExitOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeFullExit).
		accountID(op.Priority.AccountID).
		address(op.Priority.EthAddress).
		tokenID(op.Priority.Token).
		fullAmount(op.WithdrawAmount).
		bytes()
}

func fullExitFromPublicData(b []byte) (*FullExitOp, error) {
	r, err := newPubDataReader(TypeFullExit, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &FullExitOp{Priority: &common.FullExit{}}
	op.Priority.AccountID = r.accountID()
	op.Priority.EthAddress = r.address()
	op.Priority.Token = r.tokenID()
	op.WithdrawAmount = r.fullAmount()
	return op, nil
}

// ForcedExitOp withdraws the whole balance of a token of the locked account
// TargetAccountID to its L1 address, on behalf of Tx.InitiatorAccountID
type ForcedExitOp struct {
	Tx              *common.ForcedExit
	TargetAccountID common.AccountID
	WithdrawAmount  *big.Int
}

// Type returns TypeForcedExit
func (op *ForcedExitOp) Type() Type { return TypeForcedExit }

// Chunks returns the chunks of a forced exit
func (op *ForcedExitOp) Chunks() int { return TypeForcedExit.Chunks() }

func (op *ForcedExitOp) isOp() {}

// AccountIDs returns the initiator and the target
func (op *ForcedExitOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.Tx.InitiatorAccountID, op.TargetAccountID}
}

// PublicData returns
// [op][initiator 4][target 4][token 2][amount 16][fee 2p][targetAddress 20]
func (op *ForcedExitOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeForcedExit).
		accountID(op.Tx.InitiatorAccountID).
		accountID(op.TargetAccountID).
		tokenID(op.Tx.Token).
		fullAmount(op.WithdrawAmount).
		packedFee(op.Tx.Fee).
		address(op.Tx.Target).
		bytes()
}

func forcedExitFromPublicData(b []byte) (*ForcedExitOp, error) {
	r, err := newPubDataReader(TypeForcedExit, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &ForcedExitOp{Tx: &common.ForcedExit{}}
	op.Tx.InitiatorAccountID = r.accountID()
	op.TargetAccountID = r.accountID()
	op.Tx.Token = r.tokenID()
	op.WithdrawAmount = r.fullAmount()
	if op.Tx.Fee, err = r.packedFee(); err != nil {
		return nil, common.Wrap(err)
	}
	op.Tx.Target = r.address()
	return op, nil
}
