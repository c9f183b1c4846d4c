package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// TxHashLen is the length of the TxHash byte array
const TxHashLen = 32

// TxHash is the keccak256 hash of the signed bytes of a transaction
type TxHash [TxHashLen]byte

// String returns a string hexadecimal representation of the TxHash
func (h TxHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// NewTxHashFromString parses a hexadecimal TxHash, with or without 0x prefix
func NewTxHashFromString(s string) (TxHash, error) {
	var h TxHash
	decoded, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, Wrap(err)
	}
	if len(decoded) != TxHashLen {
		return h, Wrap(errors.New("invalid tx hash length"))
	}
	copy(h[:], decoded)
	return h, nil
}

// MarshalText marshals a TxHash
func (h TxHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText unmarshals a TxHash
func (h *TxHash) UnmarshalText(data []byte) error {
	parsed, err := NewTxHashFromString(string(data))
	if err != nil {
		return Wrap(err)
	}
	*h = parsed
	return nil
}

// TxType is the first byte of the signed bytes of a transaction. The values
// match the opcodes of the operations the transactions turn into.
type TxType uint8

const (
	// TxTypeDeposit is an L1 deposit, it is never signed on L2
	TxTypeDeposit TxType = 0x01
	// TxTypeWithdraw moves funds from L2 to L1
	TxTypeWithdraw TxType = 0x03
	// TxTypeClose removes an empty account. Disabled.
	TxTypeClose TxType = 0x04
	// TxTypeTransfer moves funds between L2 accounts
	TxTypeTransfer TxType = 0x05
	// TxTypeFullExit is an L1 exit request, it is never signed on L2
	TxTypeFullExit TxType = 0x06
	// TxTypeChangePubKey sets the signing key of an account
	TxTypeChangePubKey TxType = 0x07
	// TxTypeForcedExit withdraws the balance of a locked account
	TxTypeForcedExit TxType = 0x08
	// TxTypeExchange swaps two tokens of one account
	TxTypeExchange TxType = 0x09
	// TxTypeAddLiquidity adds liquidity to a pool
	TxTypeAddLiquidity TxType = 0x0a
	// TxTypeRemoveLiquidity removes liquidity from a pool
	TxTypeRemoveLiquidity TxType = 0x0b
)

func (t TxType) String() string {
	switch t {
	case TxTypeDeposit:
		return "Deposit"
	case TxTypeWithdraw:
		return "Withdraw"
	case TxTypeClose:
		return "Close"
	case TxTypeTransfer:
		return "Transfer"
	case TxTypeFullExit:
		return "FullExit"
	case TxTypeChangePubKey:
		return "ChangePubKey"
	case TxTypeForcedExit:
		return "ForcedExit"
	case TxTypeExchange:
		return "Exchange"
	case TxTypeAddLiquidity:
		return "AddLiquidity"
	case TxTypeRemoveLiquidity:
		return "RemoveLiquidity"
	default:
		return fmt.Sprintf("TxType(%d)", uint8(t))
	}
}

// L2Tx is a transaction signed by the owner of an L2 account. The set of
// implementations is closed: Transfer, Withdraw, Close, ChangePubKey,
// ForcedExit, Exchange, AddLiquidity and RemoveLiquidity.
type L2Tx interface {
	Type() TxType
	// Bytes returns the signed message
	Bytes() ([]byte, error)
	// CheckCorrectness checks the tx fields and its signature
	CheckCorrectness() error
	// VerifySignature returns the hash of the key that signed the tx
	VerifySignature() (PubKeyHash, error)
	Sign(sk *babyjub.PrivateKey) error
	isL2Tx()
}

// HashTx returns the keccak256 of the signed bytes of tx
func HashTx(tx L2Tx) (TxHash, error) {
	var h TxHash
	b, err := tx.Bytes()
	if err != nil {
		return h, Wrap(err)
	}
	copy(h[:], ethCrypto.Keccak256(b))
	return h, nil
}

// txBytesBuilder appends the fields of a tx in their signed layout and
// keeps the first packing error
type txBytesBuilder struct {
	b   []byte
	err error
}

func newTxBytesBuilder(t TxType) *txBytesBuilder {
	return &txBytesBuilder{b: []byte{byte(t)}}
}

func (tb *txBytesBuilder) raw(b []byte) *txBytesBuilder {
	tb.b = append(tb.b, b...)
	return tb
}

func (tb *txBytesBuilder) accountID(id AccountID) *txBytesBuilder {
	b := id.Bytes()
	return tb.raw(b[:])
}

func (tb *txBytesBuilder) tokenID(t TokenID) *txBytesBuilder {
	b := t.Bytes()
	return tb.raw(b[:])
}

func (tb *txBytesBuilder) nonce(n Nonce) *txBytesBuilder {
	b := n.Bytes()
	return tb.raw(b[:])
}

func (tb *txBytesBuilder) packedAmount(v *big.Int) *txBytesBuilder {
	if tb.err != nil {
		return tb
	}
	b, err := PackTokenAmount(v)
	if err != nil {
		tb.err = err
		return tb
	}
	return tb.raw(b)
}

func (tb *txBytesBuilder) packedFee(v *big.Int) *txBytesBuilder {
	if tb.err != nil {
		return tb
	}
	b, err := PackFeeAmount(v)
	if err != nil {
		tb.err = err
		return tb
	}
	return tb.raw(b)
}

func (tb *txBytesBuilder) fullAmount(v *big.Int) *txBytesBuilder {
	if tb.err != nil {
		return tb
	}
	b, err := BigIntToBytes16(v)
	if err != nil {
		tb.err = err
		return tb
	}
	return tb.raw(b[:])
}

func (tb *txBytesBuilder) bytes() ([]byte, error) {
	if tb.err != nil {
		return nil, Wrap(tb.err)
	}
	return tb.b, nil
}

// checkTxIDs checks that the account and token ids are inside the network
// bounds
func checkTxIDs(id AccountID, tokens ...TokenID) error {
	if id > MaxAccountID {
		return Wrap(fmt.Errorf("%w: %d", ErrAccountIDOutOfRange, id))
	}
	for _, t := range tokens {
		if t > MaxTokenID {
			return Wrap(fmt.Errorf("%w: %d", ErrTokenIDOutOfRange, t))
		}
	}
	return nil
}

// checkPackable checks that every amount can be packed, and every fee too
func checkPackable(amounts []*big.Int, fees []*big.Int) error {
	for _, a := range amounts {
		if !IsTokenAmountPackable(a) {
			return Wrap(fmt.Errorf("%w: amount %s", ErrNotPackable, a))
		}
	}
	for _, f := range fees {
		if !IsFeeAmountPackable(f) {
			return Wrap(fmt.Errorf("%w: fee %s", ErrNotPackable, f))
		}
	}
	return nil
}

// signTx signs tx and returns its signature
func signTx(tx L2Tx, sk *babyjub.PrivateKey) (TxSignature, error) {
	b, err := tx.Bytes()
	if err != nil {
		return TxSignature{}, Wrap(err)
	}
	return SignTxBytes(sk, b), nil
}

// verifyTx verifies sig over the bytes of tx
func verifyTx(tx L2Tx, sig TxSignature) (PubKeyHash, error) {
	b, err := tx.Bytes()
	if err != nil {
		return EmptyPubKeyHash, Wrap(err)
	}
	return sig.Verify(b)
}
