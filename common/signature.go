package common

import (
	"math/big"

	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// txMsgBytesLen keeps the signed message inside the BabyJubJub field
const txMsgBytesLen = 31

// TxSignature is the L2 signature of a transaction together with the public
// key that produced it
type TxSignature struct {
	PubKey    babyjub.PublicKeyComp `json:"pubKey"`
	Signature babyjub.SignatureComp `json:"signature"`
}

// IsEmpty returns true when the signature was never set
func (s TxSignature) IsEmpty() bool {
	return s == TxSignature{}
}

// TxMsgHash returns the field element that is signed for the tx bytes b
func TxMsgHash(b []byte) *big.Int {
	h := ethCrypto.Keccak256(b)
	return new(big.Int).SetBytes(h[:txMsgBytesLen])
}

// SignTxBytes signs the tx bytes b with sk
func SignTxBytes(sk *babyjub.PrivateKey, b []byte) TxSignature {
	sig := sk.SignPoseidon(TxMsgHash(b))
	return TxSignature{
		PubKey:    sk.Public().Compress(),
		Signature: sig.Compress(),
	}
}

// Verify checks the signature over the tx bytes b and returns the hash of
// the signing key
func (s TxSignature) Verify(b []byte) (PubKeyHash, error) {
	pk, err := s.PubKey.Decompress()
	if err != nil {
		return EmptyPubKeyHash, Wrap(ErrInvalidSignature)
	}
	sig, err := s.Signature.Decompress()
	if err != nil {
		return EmptyPubKeyHash, Wrap(ErrInvalidSignature)
	}
	if !pk.VerifyPoseidon(TxMsgHash(b), sig) {
		return EmptyPubKeyHash, Wrap(ErrInvalidSignature)
	}
	return PubKeyHashFromBabyJub(pk)
}

// PubKeyHashFromBabyJub returns the last 20 bytes of the Poseidon hash of
// the public key coordinates
func PubKeyHashFromBabyJub(pk *babyjub.PublicKey) (PubKeyHash, error) {
	var h PubKeyHash
	hash, err := poseidon.Hash([]*big.Int{pk.X, pk.Y})
	if err != nil {
		return h, Wrap(err)
	}
	var b [32]byte
	hash.FillBytes(b[:])
	copy(h[:], b[32-PubKeyHashBytesLen:])
	return h, nil
}
