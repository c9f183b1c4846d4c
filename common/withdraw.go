package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// Withdraw moves Amount of Token from the L2 account AccountID to the L1
// address To
type Withdraw struct {
	AccountID AccountID         `json:"accountId"`
	From      ethCommon.Address `json:"from"`
	To        ethCommon.Address `json:"to"`
	Token     TokenID           `json:"token"`
	Amount    *big.Int          `json:"amount"`
	Fee       *big.Int          `json:"fee"`
	Nonce     Nonce             `json:"nonce"`
	// FastProcessing asks the sequencer to seal the block right after
	// this tx
	FastProcessing bool        `json:"fastProcessing"`
	TimeRange      TimeRange   `json:"timeRange"`
	Signature      TxSignature `json:"signature"`
}

// Type returns TxTypeWithdraw
func (tx *Withdraw) Type() TxType { return TxTypeWithdraw }

func (tx *Withdraw) isL2Tx() {}

// Bytes returns the signed message:
// [type][accountId 4][from 20][to 20][token 2][amount 16][fee 2p][nonce 4][timeRange 16]
func (tx *Withdraw) Bytes() ([]byte, error) {
	return newTxBytesBuilder(TxTypeWithdraw).
		accountID(tx.AccountID).
		raw(tx.From.Bytes()).
		raw(tx.To.Bytes()).
		tokenID(tx.Token).
		fullAmount(tx.Amount).
		packedFee(tx.Fee).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

// Sign sets the signature of the tx
func (tx *Withdraw) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *Withdraw) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, amount range, fee packability, time range
// and signature
func (tx *Withdraw) CheckCorrectness() error {
	if tx.Amount == nil || tx.Fee == nil {
		return Wrap(fmt.Errorf("Withdraw: amount and fee must be set"))
	}
	if err := checkTxIDs(tx.AccountID, tx.Token); err != nil {
		return Wrap(err)
	}
	if !IsBalanceInRange(tx.Amount) {
		return Wrap(fmt.Errorf("%w: withdraw amount %s", ErrNumOverflow, tx.Amount))
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
