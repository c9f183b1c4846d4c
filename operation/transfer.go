package operation

import (
	"math/big"
	"tokamak-zkrollup/common"
)

// TransferOp is a transfer between two existing accounts
type TransferOp struct {
	Tx   *common.Transfer
	From common.AccountID
	To   common.AccountID
}

// Type returns TypeTransfer
func (op *TransferOp) Type() Type { return TypeTransfer }

// Chunks returns the chunks of a transfer
func (op *TransferOp) Chunks() int { return TypeTransfer.Chunks() }

func (op *TransferOp) isOp() {}

// AccountIDs returns the sender and the recipient
func (op *TransferOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.From, op.To}
}

// PublicData returns [op][from 4][token 2][to 4][amount 5p][fee 2p]
func (op *TransferOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeTransfer).
		accountID(op.From).
		tokenID(op.Tx.Token).
		accountID(op.To).
		packedAmount(op.Tx.Amount).
		packedFee(op.Tx.Fee).
		bytes()
}

func transferFromPublicData(b []byte) (*TransferOp, error) {
	r, err := newPubDataReader(TypeTransfer, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &TransferOp{Tx: &common.Transfer{}}
	op.From = r.accountID()
	op.Tx.AccountID = op.From
	op.Tx.Token = r.tokenID()
	op.To = r.accountID()
	if op.Tx.Amount, op.Tx.Fee, err = readAmountAndFee(r); err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}

// TransferToNewOp is a transfer whose recipient account is created by the
// operation
type TransferToNewOp struct {
	Tx   *common.Transfer
	From common.AccountID
	To   common.AccountID
}

// Type returns TypeTransferToNew
func (op *TransferToNewOp) Type() Type { return TypeTransferToNew }

// Chunks returns the chunks of a transfer to new
func (op *TransferToNewOp) Chunks() int { return TypeTransferToNew.Chunks() }

func (op *TransferToNewOp) isOp() {}

// AccountIDs returns the sender and the created recipient
func (op *TransferToNewOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.From, op.To}
}

// PublicData returns [op][from 4][token 2][amount 5p][toAddress 20][to 4][fee 2p]
func (op *TransferToNewOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeTransferToNew).
		accountID(op.From).
		tokenID(op.Tx.Token).
		packedAmount(op.Tx.Amount).
		address(op.Tx.To).
		accountID(op.To).
		packedFee(op.Tx.Fee).
		bytes()
}

func transferToNewFromPublicData(b []byte) (*TransferToNewOp, error) {
	r, err := newPubDataReader(TypeTransferToNew, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &TransferToNewOp{Tx: &common.Transfer{}}
	op.From = r.accountID()
	op.Tx.AccountID = op.From
	op.Tx.Token = r.tokenID()
	if op.Tx.Amount, err = r.packedAmount(); err != nil {
		return nil, common.Wrap(err)
	}
	op.Tx.To = r.address()
	op.To = r.accountID()
	if op.Tx.Fee, err = r.packedFee(); err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}

func readAmountAndFee(r *pubDataReader) (*big.Int, *big.Int, error) {
	amount, err := r.packedAmount()
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	fee, err := r.packedFee()
	if err != nil {
		return nil, nil, common.Wrap(err)
	}
	return amount, fee, nil
}
