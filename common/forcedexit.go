package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// ForcedExit is signed by InitiatorAccountID and withdraws the whole Token
// balance of the locked account owning Target to Target on L1. The
// initiator pays the fee.
type ForcedExit struct {
	InitiatorAccountID AccountID         `json:"initiatorAccountId"`
	Target             ethCommon.Address `json:"target"`
	Token              TokenID           `json:"token"`
	Fee                *big.Int          `json:"fee"`
	Nonce              Nonce             `json:"nonce"`
	TimeRange          TimeRange         `json:"timeRange"`
	Signature          TxSignature       `json:"signature"`
}

// Type returns TxTypeForcedExit
func (tx *ForcedExit) Type() TxType { return TxTypeForcedExit }

func (tx *ForcedExit) isL2Tx() {}

// Bytes returns the signed message:
// [type][initiator 4][target 20][token 2][fee 2p][nonce 4][timeRange 16]
func (tx *ForcedExit) Bytes() ([]byte, error) {
	return newTxBytesBuilder(TxTypeForcedExit).
		accountID(tx.InitiatorAccountID).
		raw(tx.Target.Bytes()).
		tokenID(tx.Token).
		packedFee(tx.Fee).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

// Sign sets the signature of the tx
func (tx *ForcedExit) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *ForcedExit) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, fee packability, time range and signature
func (tx *ForcedExit) CheckCorrectness() error {
	if tx.Fee == nil {
		return Wrap(fmt.Errorf("ForcedExit: fee must be set"))
	}
	if err := checkTxIDs(tx.InitiatorAccountID, tx.Token); err != nil {
		return Wrap(err)
	}
	if err := checkPackable(nil, []*big.Int{tx.Fee}); err != nil {
		return Wrap(err)
	}
	if err := tx.TimeRange.CheckCorrectness(); err != nil {
		return Wrap(err)
	}
	if _, err := tx.VerifySignature(); err != nil {
		return Wrap(err)
	}
	return nil
}
