package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// Exchange swaps AmountA of TokenA for AmountB of TokenB inside the account
// AccountID. The fee is paid in TokenA.
type Exchange struct {
	AccountID AccountID         `json:"accountId"`
	From      ethCommon.Address `json:"from"`
	TokenA    TokenID           `json:"tokenA"`
	TokenB    TokenID           `json:"tokenB"`
	AmountA   *big.Int          `json:"amountA"`
	AmountB   *big.Int          `json:"amountB"`
	Price     *big.Int          `json:"price"`
	Fee       *big.Int          `json:"fee"`
	Nonce     Nonce             `json:"nonce"`
	TimeRange TimeRange         `json:"timeRange"`
	Signature TxSignature       `json:"signature"`
}

// Type returns TxTypeExchange
func (tx *Exchange) Type() TxType { return TxTypeExchange }

func (tx *Exchange) isL2Tx() {}

// Bytes returns the signed message:
// [type][accountId 4][from 20][tokenA 2][tokenB 2][amountA 5p][amountB 5p]
// [price 2p][fee 2p][nonce 4][timeRange 16]
func (tx *Exchange) Bytes() ([]byte, error) {
	return newTxBytesBuilder(TxTypeExchange).
		accountID(tx.AccountID).
		raw(tx.From.Bytes()).
		tokenID(tx.TokenA).
		tokenID(tx.TokenB).
		packedAmount(tx.AmountA).
		packedAmount(tx.AmountB).
		packedFee(tx.Price).
		packedFee(tx.Fee).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

// Sign sets the signature of the tx
func (tx *Exchange) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *Exchange) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, packability, time range and signature
func (tx *Exchange) CheckCorrectness() error {
	if tx.AmountA == nil || tx.AmountB == nil || tx.Price == nil || tx.Fee == nil {
		return Wrap(fmt.Errorf("Exchange: amounts, price and fee must be set"))
	}
	if err := checkTxIDs(tx.AccountID, tx.TokenA, tx.TokenB); err != nil {
		return Wrap(err)
	}
	if err := checkPackable([]*big.Int{tx.AmountA, tx.AmountB},
		[]*big.Int{tx.Price, tx.Fee}); err != nil {
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
