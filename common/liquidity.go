package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// LiquidityTx holds the fields shared by AddLiquidity and RemoveLiquidity.
// Both move liquidity of Token inside the account AccountID: the account is
// debited AmountADesired + FeeA and credited AmountBDesired.
type LiquidityTx struct {
	AccountID      AccountID         `json:"accountId"`
	From           ethCommon.Address `json:"from"`
	To             ethCommon.Address `json:"to"`
	Token          TokenID           `json:"token"`
	AmountADesired *big.Int          `json:"amountADesired"`
	AmountBDesired *big.Int          `json:"amountBDesired"`
	AmountAMin     *big.Int          `json:"amountAMin"`
	AmountBMin     *big.Int          `json:"amountBMin"`
	FeeA           *big.Int          `json:"feeA"`
	FeeB           *big.Int          `json:"feeB"`
	Nonce          Nonce             `json:"nonce"`
	TimeRange      TimeRange         `json:"timeRange"`
	Signature      TxSignature       `json:"signature"`
}

// bytes returns the signed message:
// [type][accountId 4][from 20][to 20][token 2][aDesired 5p][bDesired 5p]
// [aMin 5p][bMin 5p][feeA 2p][feeB 2p][nonce 4][timeRange 16]
func (tx *LiquidityTx) bytes(t TxType) ([]byte, error) {
	return newTxBytesBuilder(t).
		accountID(tx.AccountID).
		raw(tx.From.Bytes()).
		raw(tx.To.Bytes()).
		tokenID(tx.Token).
		packedAmount(tx.AmountADesired).
		packedAmount(tx.AmountBDesired).
		packedAmount(tx.AmountAMin).
		packedAmount(tx.AmountBMin).
		packedFee(tx.FeeA).
		packedFee(tx.FeeB).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

func (tx *LiquidityTx) checkFields(name string) error {
	if tx.AmountADesired == nil || tx.AmountBDesired == nil || tx.AmountAMin == nil ||
		tx.AmountBMin == nil || tx.FeeA == nil || tx.FeeB == nil {
		return Wrap(fmt.Errorf("%s: amounts and fees must be set", name))
	}
	if err := checkTxIDs(tx.AccountID, tx.Token); err != nil {
		return Wrap(err)
	}
	if err := checkPackable(
		[]*big.Int{tx.AmountADesired, tx.AmountBDesired, tx.AmountAMin, tx.AmountBMin},
		[]*big.Int{tx.FeeA, tx.FeeB}); err != nil {
		return Wrap(err)
	}
	return Wrap(tx.TimeRange.CheckCorrectness())
}

// AddLiquidity adds liquidity of Token to a pool
type AddLiquidity struct {
	LiquidityTx
}

// Type returns TxTypeAddLiquidity
func (tx *AddLiquidity) Type() TxType { return TxTypeAddLiquidity }

func (tx *AddLiquidity) isL2Tx() {}

// Bytes returns the signed message
func (tx *AddLiquidity) Bytes() ([]byte, error) {
	return tx.bytes(TxTypeAddLiquidity)
}

// Sign sets the signature of the tx
func (tx *AddLiquidity) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *AddLiquidity) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, packability, time range and signature
func (tx *AddLiquidity) CheckCorrectness() error {
	if err := tx.checkFields("AddLiquidity"); err != nil {
		return Wrap(err)
	}
	_, err := tx.VerifySignature()
	return Wrap(err)
}

// RemoveLiquidity removes liquidity of Token from a pool
type RemoveLiquidity struct {
	LiquidityTx
}

// Type returns TxTypeRemoveLiquidity
func (tx *RemoveLiquidity) Type() TxType { return TxTypeRemoveLiquidity }

func (tx *RemoveLiquidity) isL2Tx() {}

// Bytes returns the signed message
func (tx *RemoveLiquidity) Bytes() ([]byte, error) {
	return tx.bytes(TxTypeRemoveLiquidity)
}

// Sign sets the signature of the tx
func (tx *RemoveLiquidity) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *RemoveLiquidity) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, packability, time range and signature
func (tx *RemoveLiquidity) CheckCorrectness() error {
	if err := tx.checkFields("RemoveLiquidity"); err != nil {
		return Wrap(err)
	}
	_, err := tx.VerifySignature()
	return Wrap(err)
}
