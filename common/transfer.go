package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// Transfer moves Amount of Token from the account AccountID to the account
// owning To, creating it when it does not exist yet
type Transfer struct {
	AccountID AccountID         `json:"accountId"`
	From      ethCommon.Address `json:"from"`
	To        ethCommon.Address `json:"to"`
	Token     TokenID           `json:"token"`
	Amount    *big.Int          `json:"amount"`
	Fee       *big.Int          `json:"fee"`
	Nonce     Nonce             `json:"nonce"`
	TimeRange TimeRange         `json:"timeRange"`
	Signature TxSignature       `json:"signature"`
}

// Type returns TxTypeTransfer
func (tx *Transfer) Type() TxType { return TxTypeTransfer }

func (tx *Transfer) isL2Tx() {}

// Bytes returns the signed message:
// [type][accountId 4][from 20][to 20][token 2][amount 5p][fee 2p][nonce 4][timeRange 16]
func (tx *Transfer) Bytes() ([]byte, error) {
	return newTxBytesBuilder(TxTypeTransfer).
		accountID(tx.AccountID).
		raw(tx.From.Bytes()).
		raw(tx.To.Bytes()).
		tokenID(tx.Token).
		packedAmount(tx.Amount).
		packedFee(tx.Fee).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

// Sign sets the signature of the tx
func (tx *Transfer) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *Transfer) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, packability, time range and signature
func (tx *Transfer) CheckCorrectness() error {
	if tx.Amount == nil || tx.Fee == nil {
		return Wrap(fmt.Errorf("Transfer: amount and fee must be set"))
	}
	if err := checkTxIDs(tx.AccountID, tx.Token); err != nil {
		return Wrap(err)
	}
	if err := checkPackable([]*big.Int{tx.Amount}, []*big.Int{tx.Fee}); err != nil {
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
