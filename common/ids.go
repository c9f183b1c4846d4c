package common

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

const (
	// ChunkBytes is the width in bytes of one pubdata chunk
	ChunkBytes = 9

	// AccountIDBytesLen is the length of an AccountID on the wire
	AccountIDBytesLen = 4
	// TokenIDBytesLen is the length of a TokenID on the wire
	TokenIDBytesLen = 2
	// NonceBytesLen is the length of a Nonce on the wire
	NonceBytesLen = 4
	// BalanceBytesLen is the length of a full (unpacked) amount on the wire
	BalanceBytesLen = 16
	// AddressBytesLen is the length of an L1 address
	AddressBytesLen = ethCommon.AddressLength
	// PubKeyHashBytesLen is the length of the signing-key hash
	PubKeyHashBytesLen = 20

	// AccountTreeDepth is the depth of the account Merkle tree
	AccountTreeDepth = 24
	// BalanceTreeDepth bounds the number of tokens an account can hold
	BalanceTreeDepth = 10

	// MaxAccountID is the biggest account id the network supports
	MaxAccountID = AccountID(1<<AccountTreeDepth - 1)
	// MaxTokenID is the biggest token id the network supports
	MaxTokenID = TokenID(1<<BalanceTreeDepth - 1)
	// NativeTokenID is the token used for zero fees of disabled operations
	NativeTokenID = TokenID(0)
)

// maxBalance is 2^128 - 1, the biggest amount representable on the wire
var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8*BalanceBytesLen), big.NewInt(1))

// AccountID is the index of an account in the account tree
type AccountID uint32

// Bytes returns the big-endian 4 bytes representation of the AccountID
func (id AccountID) Bytes() [AccountIDBytesLen]byte {
	var b [AccountIDBytesLen]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return b
}

// BigInt returns the AccountID as a *big.Int, used as the Merkle tree key
func (id AccountID) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(id))
}

// AccountIDFromBytes decodes a big-endian 4 bytes AccountID
func AccountIDFromBytes(b []byte) (AccountID, error) {
	if len(b) != AccountIDBytesLen {
		return 0, Wrap(fmt.Errorf("AccountIDFromBytes: %w: got %d, expected %d",
			ErrInvalidLength, len(b), AccountIDBytesLen))
	}
	return AccountID(binary.BigEndian.Uint32(b)), nil
}

// TokenID is the identifier of a token registered in the network
type TokenID uint16

// Bytes returns the big-endian 2 bytes representation of the TokenID
func (t TokenID) Bytes() [TokenIDBytesLen]byte {
	var b [TokenIDBytesLen]byte
	binary.BigEndian.PutUint16(b[:], uint16(t))
	return b
}

// BigInt returns the TokenID as a *big.Int
func (t TokenID) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(t))
}

// TokenIDFromBytes decodes a big-endian 2 bytes TokenID
func TokenIDFromBytes(b []byte) (TokenID, error) {
	if len(b) != TokenIDBytesLen {
		return 0, Wrap(fmt.Errorf("TokenIDFromBytes: %w: got %d, expected %d",
			ErrInvalidLength, len(b), TokenIDBytesLen))
	}
	return TokenID(binary.BigEndian.Uint16(b)), nil
}

// Nonce is the per-account transaction counter
type Nonce uint32

// Bytes returns the big-endian 4 bytes representation of the Nonce
func (n Nonce) Bytes() [NonceBytesLen]byte {
	var b [NonceBytesLen]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return b
}

// NonceFromBytes decodes a big-endian 4 bytes Nonce
func NonceFromBytes(b []byte) (Nonce, error) {
	if len(b) != NonceBytesLen {
		return 0, Wrap(fmt.Errorf("NonceFromBytes: %w: got %d, expected %d",
			ErrInvalidLength, len(b), NonceBytesLen))
	}
	return Nonce(binary.BigEndian.Uint32(b)), nil
}

// BlockNumber is the number of a rollup block
type BlockNumber uint32

// Bytes returns the big-endian 4 bytes representation of the BlockNumber
func (bn BlockNumber) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(bn))
	return b[:]
}

// BlockNumberFromBytes decodes a big-endian 4 bytes BlockNumber
func BlockNumberFromBytes(b []byte) (BlockNumber, error) {
	if len(b) != 4 {
		return 0, Wrap(fmt.Errorf("BlockNumberFromBytes: %w: got %d, expected 4",
			ErrInvalidLength, len(b)))
	}
	return BlockNumber(binary.BigEndian.Uint32(b)), nil
}

// SerialID is the position of a priority operation in the L1 priority queue
type SerialID uint64

// PubKeyHash is the truncated hash of an account's L2 signing key. The zero
// value means the account has no signing key set (locked).
type PubKeyHash [PubKeyHashBytesLen]byte

// EmptyPubKeyHash is the hash of a locked account
var EmptyPubKeyHash = PubKeyHash{}

// IsEmpty returns true when no signing key is set
func (h PubKeyHash) IsEmpty() bool {
	return h == EmptyPubKeyHash
}

// String returns the "sync:" prefixed hex representation of the hash
func (h PubKeyHash) String() string {
	return "sync:" + hex.EncodeToString(h[:])
}

// PubKeyHashFromString parses a "sync:" prefixed hex string
func PubKeyHashFromString(s string) (PubKeyHash, error) {
	var h PubKeyHash
	if !strings.HasPrefix(s, "sync:") {
		return h, Wrap(fmt.Errorf("PubKeyHash should start with \"sync:\": %s", s))
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "sync:"))
	if err != nil {
		return h, Wrap(err)
	}
	if len(b) != PubKeyHashBytesLen {
		return h, Wrap(fmt.Errorf("PubKeyHashFromString: %w: got %d, expected %d",
			ErrInvalidLength, len(b), PubKeyHashBytesLen))
	}
	copy(h[:], b)
	return h, nil
}

// MarshalText implements encoding.TextMarshaler
func (h PubKeyHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *PubKeyHash) UnmarshalText(data []byte) error {
	parsed, err := PubKeyHashFromString(string(data))
	if err != nil {
		return Wrap(err)
	}
	*h = parsed
	return nil
}

// EmptyAddr is used to check if an L1 address is 0
var EmptyAddr = ethCommon.Address{}

// BigIntToBytes16 returns the 16 bytes big-endian representation of an
// amount, failing when it does not fit in 128 bits
func BigIntToBytes16(v *big.Int) ([BalanceBytesLen]byte, error) {
	var b [BalanceBytesLen]byte
	if v.Sign() < 0 || v.Cmp(maxBalance) > 0 {
		return b, Wrap(fmt.Errorf("%w: amount %s does not fit in 128 bits", ErrNumOverflow, v))
	}
	v.FillBytes(b[:])
	return b, nil
}

// IsBalanceInRange returns true if v is a non negative value that fits in
// 128 bits
func IsBalanceInRange(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(maxBalance) <= 0
}
