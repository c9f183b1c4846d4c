package operation

import (
	"tokamak-zkrollup/common"
)

// ChangePubKeyOp sets the signing key of AccountID
type ChangePubKeyOp struct {
	Tx        *common.ChangePubKey
	AccountID common.AccountID
}

// Type returns TypeChangePubKey
func (op *ChangePubKeyOp) Type() Type { return TypeChangePubKey }

// Chunks returns the chunks of a change pubkey
func (op *ChangePubKeyOp) Chunks() int { return TypeChangePubKey.Chunks() }

func (op *ChangePubKeyOp) isOp() {}

// AccountIDs returns the updated account
func (op *ChangePubKeyOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.AccountID}
}

// PublicData returns
// [op][accountId 4][newPkHash 20][account 20][nonce 4][feeToken 2][fee 2p]
func (op *ChangePubKeyOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeChangePubKey).
		accountID(op.AccountID).
		raw(op.Tx.NewPubKeyHash[:]).
		address(op.Tx.Account).
		nonce(op.Tx.Nonce).
		tokenID(op.Tx.FeeToken).
		packedFee(op.Tx.Fee).
		bytes()
}

func changePubKeyFromPublicData(b []byte) (*ChangePubKeyOp, error) {
	r, err := newPubDataReader(TypeChangePubKey, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &ChangePubKeyOp{Tx: &common.ChangePubKey{}}
	op.AccountID = r.accountID()
	op.Tx.AccountID = op.AccountID
	copy(op.Tx.NewPubKeyHash[:], r.raw(common.PubKeyHashBytesLen))
	op.Tx.Account = r.address()
	op.Tx.Nonce = r.nonce()
	op.Tx.FeeToken = r.tokenID()
	if op.Tx.Fee, err = r.packedFee(); err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}
