package operation

import (
	"tokamak-zkrollup/common"
)

// DepositOp credits a deposit to AccountID
type DepositOp struct {
	Priority  *common.Deposit
	AccountID common.AccountID
}

// Type returns TypeDeposit
func (op *DepositOp) Type() Type { return TypeDeposit }

// Chunks returns the chunks of a deposit
func (op *DepositOp) Chunks() int { return TypeDeposit.Chunks() }

func (op *DepositOp) isOp() {}

// AccountIDs returns the credited account
func (op *DepositOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.AccountID}
}

// PublicData returns [op][accountId 4][token 2][amount 16][to 20]
func (op *DepositOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeDeposit).
		accountID(op.AccountID).
		tokenID(op.Priority.Token).
		fullAmount(op.Priority.Amount).
		address(op.Priority.To).
		bytes()
}

func depositFromPublicData(b []byte) (*DepositOp, error) {
	r, err := newPubDataReader(TypeDeposit, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &DepositOp{AccountID: r.accountID()}
	op.Priority = &common.Deposit{
		Token:  r.tokenID(),
		Amount: r.fullAmount(),
		To:     r.address(),
	}
	return op, nil
}
