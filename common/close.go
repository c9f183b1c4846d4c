package common

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// Close removes an empty account. New Close transactions are not accepted
// by the network anymore, the type is kept to replay historical blocks.
type Close struct {
	AccountID AccountID         `json:"accountId"`
	Account   ethCommon.Address `json:"account"`
	Nonce     Nonce             `json:"nonce"`
	TimeRange TimeRange         `json:"timeRange"`
	Signature TxSignature       `json:"signature"`
}

// Type returns TxTypeClose
func (tx *Close) Type() TxType { return TxTypeClose }

func (tx *Close) isL2Tx() {}

// Bytes returns the signed message:
// [type][account 20][nonce 4][timeRange 16]
func (tx *Close) Bytes() ([]byte, error) {
	return newTxBytesBuilder(TxTypeClose).
		raw(tx.Account.Bytes()).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

// Sign sets the signature of the tx
func (tx *Close) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *Close) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks the time range and the signature
func (tx *Close) CheckCorrectness() error {
	if err := tx.TimeRange.CheckCorrectness(); err != nil {
		return Wrap(err)
	}
	if _, err := tx.VerifySignature(); err != nil {
		return Wrap(err)
	}
	return nil
}
