package common

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
)

// PackedEthSignatureLen is the length of an [R || S || V] signature
const PackedEthSignatureLen = 65

// PackedEthSignature is an ECDSA signature over an L1 personal message, in
// the [R || S || V] layout with V in {27, 28}
type PackedEthSignature [PackedEthSignatureLen]byte

// SignEthMessage signs msg as an L1 personal message with key
func SignEthMessage(key *ecdsa.PrivateKey, msg []byte) (PackedEthSignature, error) {
	var sig PackedEthSignature
	s, err := ethCrypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		return sig, Wrap(err)
	}
	copy(sig[:], s)
	sig[64] += 27
	return sig, nil
}

// RecoverSigner returns the address of the key that signed msg
func (sig PackedEthSignature) RecoverSigner(msg []byte) (ethCommon.Address, error) {
	s := make([]byte, PackedEthSignatureLen)
	copy(s, sig[:])
	if s[64] >= 27 {
		s[64] -= 27
	}
	pub, err := ethCrypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return EmptyAddr, Wrap(fmt.Errorf("%w: %s", ErrInvalidSignature, err))
	}
	return ethCrypto.PubkeyToAddress(*pub), nil
}

// String returns the 0x prefixed hex representation
func (sig PackedEthSignature) String() string {
	return "0x" + hex.EncodeToString(sig[:])
}

// MarshalText implements encoding.TextMarshaler
func (sig PackedEthSignature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (sig *PackedEthSignature) UnmarshalText(data []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(string(data), "0x"))
	if err != nil {
		return Wrap(err)
	}
	if len(b) != PackedEthSignatureLen {
		return Wrap(fmt.Errorf("PackedEthSignature: %w: got %d, expected %d",
			ErrInvalidLength, len(b), PackedEthSignatureLen))
	}
	copy(sig[:], b)
	return nil
}

// EthSigner signs on behalf of an L1 account
type EthSigner interface {
	Address() ethCommon.Address
	SignMessage(msg []byte) (PackedEthSignature, error)
	SignTransaction(tx *types.Transaction) (*types.Transaction, error)
}

// PrivateKeySigner is an EthSigner holding the private key in memory
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address ethCommon.Address
	chainID *big.Int
}

// NewPrivateKeySigner returns a signer for key on the given network
func NewPrivateKeySigner(key *ecdsa.PrivateKey, network Network) *PrivateKeySigner {
	return &PrivateKeySigner{
		key:     key,
		address: ethCrypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(network.ChainID()),
	}
}

// Address returns the L1 address of the signer
func (s *PrivateKeySigner) Address() ethCommon.Address {
	return s.address
}

// SignMessage signs msg as a personal message
func (s *PrivateKeySigner) SignMessage(msg []byte) (PackedEthSignature, error) {
	return SignEthMessage(s.key, msg)
}

// SignTransaction signs an L1 transaction for the signer chain
func (s *PrivateKeySigner) SignTransaction(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, Wrap(err)
	}
	return signed, nil
}
