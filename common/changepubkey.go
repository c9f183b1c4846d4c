package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// changePubKeyEthSignedDataLen is pkHash + nonce + accountId + batchHash
const changePubKeyEthSignedDataLen = PubKeyHashBytesLen + NonceBytesLen + AccountIDBytesLen +
	ethCommon.HashLength

// ChangePubKeyAuthType is how the L1 owner of the account authorizes the
// new signing key
type ChangePubKeyAuthType uint8

const (
	// ChangePubKeyAuthOnchain is authorized by a previous L1 transaction
	ChangePubKeyAuthOnchain ChangePubKeyAuthType = iota
	// ChangePubKeyAuthECDSA is authorized by an L1 personal signature
	ChangePubKeyAuthECDSA
	// ChangePubKeyAuthCREATE2 is authorized by proving the account address
	// is the CREATE2 address derived from the new key
	ChangePubKeyAuthCREATE2
)

func (t ChangePubKeyAuthType) String() string {
	switch t {
	case ChangePubKeyAuthOnchain:
		return "Onchain"
	case ChangePubKeyAuthECDSA:
		return "ECDSA"
	case ChangePubKeyAuthCREATE2:
		return "CREATE2"
	default:
		return fmt.Sprintf("ChangePubKeyAuthType(%d)", uint8(t))
	}
}

// ChangePubKeyAuthData is the L1 authorization of a ChangePubKey. ECDSA uses
// EthSignature and BatchHash, CREATE2 uses CreatorAddress, SaltArg and
// CodeHash.
type ChangePubKeyAuthData struct {
	Type           ChangePubKeyAuthType `json:"type"`
	EthSignature   PackedEthSignature   `json:"ethSignature,omitempty"`
	BatchHash      ethCommon.Hash       `json:"batchHash,omitempty"`
	CreatorAddress ethCommon.Address    `json:"creatorAddress,omitempty"`
	SaltArg        ethCommon.Hash       `json:"saltArg,omitempty"`
	CodeHash       ethCommon.Hash       `json:"codeHash,omitempty"`
}

// Create2Address returns the address of the contract deployed by
// CreatorAddress with salt keccak(SaltArg || pkHash) and CodeHash
func (d *ChangePubKeyAuthData) Create2Address(pkHash PubKeyHash) ethCommon.Address {
	salt := ethCrypto.Keccak256(d.SaltArg.Bytes(), pkHash[:])
	return ethCommon.BytesToAddress(
		ethCrypto.Keccak256([]byte{0xff}, d.CreatorAddress.Bytes(), salt, d.CodeHash.Bytes())[12:])
}

// EthWitness returns the bytes the L1 contract checks the authorization
// with: empty for Onchain, 0x00 || signature for ECDSA and
// 0x01 || creator || salt || codeHash for CREATE2
func (d *ChangePubKeyAuthData) EthWitness() []byte {
	if d == nil {
		return []byte{}
	}
	switch d.Type {
	case ChangePubKeyAuthECDSA:
		return append([]byte{0x00}, d.EthSignature[:]...)
	case ChangePubKeyAuthCREATE2:
		w := []byte{0x01}
		w = append(w, d.CreatorAddress.Bytes()...)
		w = append(w, d.SaltArg.Bytes()...)
		return append(w, d.CodeHash.Bytes()...)
	default:
		return []byte{}
	}
}

// ChangePubKey sets NewPubKeyHash as the signing key of the account
// AccountID owned by Account. The tx is signed with the new key.
type ChangePubKey struct {
	AccountID     AccountID             `json:"accountId"`
	Account       ethCommon.Address     `json:"account"`
	NewPubKeyHash PubKeyHash            `json:"newPkHash"`
	FeeToken      TokenID               `json:"feeToken"`
	Fee           *big.Int              `json:"fee"`
	Nonce         Nonce                 `json:"nonce"`
	EthAuthData   *ChangePubKeyAuthData `json:"ethAuthData,omitempty"`
	TimeRange     TimeRange             `json:"timeRange"`
	Signature     TxSignature           `json:"signature"`
}

// Type returns TxTypeChangePubKey
func (tx *ChangePubKey) Type() TxType { return TxTypeChangePubKey }

func (tx *ChangePubKey) isL2Tx() {}

// AuthType returns the authorization type, Onchain when no auth data is set
func (tx *ChangePubKey) AuthType() ChangePubKeyAuthType {
	if tx.EthAuthData == nil {
		return ChangePubKeyAuthOnchain
	}
	return tx.EthAuthData.Type
}

// Bytes returns the signed message:
// [type][accountId 4][account 20][newPkHash 20][feeToken 2][fee 2p][nonce 4][timeRange 16]
func (tx *ChangePubKey) Bytes() ([]byte, error) {
	return newTxBytesBuilder(TxTypeChangePubKey).
		accountID(tx.AccountID).
		raw(tx.Account.Bytes()).
		raw(tx.NewPubKeyHash[:]).
		tokenID(tx.FeeToken).
		packedFee(tx.Fee).
		nonce(tx.Nonce).
		raw(tx.TimeRange.Bytes()).
		bytes()
}

// EthSignedData returns the message signed on L1 for the ECDSA
// authorization: [newPkHash 20][nonce 4][accountId 4][batchHash 32]
func (tx *ChangePubKey) EthSignedData() []byte {
	b := make([]byte, 0, changePubKeyEthSignedDataLen)
	b = append(b, tx.NewPubKeyHash[:]...)
	nonce := tx.Nonce.Bytes()
	b = append(b, nonce[:]...)
	id := tx.AccountID.Bytes()
	b = append(b, id[:]...)
	var batchHash ethCommon.Hash
	if tx.EthAuthData != nil && tx.EthAuthData.Type == ChangePubKeyAuthECDSA {
		batchHash = tx.EthAuthData.BatchHash
	}
	return append(b, batchHash.Bytes()...)
}

// SignEthAuth sets an ECDSA authorization signed by signer
func (tx *ChangePubKey) SignEthAuth(signer EthSigner) error {
	tx.EthAuthData = &ChangePubKeyAuthData{Type: ChangePubKeyAuthECDSA}
	sig, err := signer.SignMessage(tx.EthSignedData())
	if err != nil {
		return Wrap(err)
	}
	tx.EthAuthData.EthSignature = sig
	return nil
}

// CheckEthAuth checks the L1 authorization. Onchain authorizations are
// checked by the L1 contract and always pass here.
func (tx *ChangePubKey) CheckEthAuth() error {
	switch tx.AuthType() {
	case ChangePubKeyAuthOnchain:
		return nil
	case ChangePubKeyAuthECDSA:
		signer, err := tx.EthAuthData.EthSignature.RecoverSigner(tx.EthSignedData())
		if err != nil {
			return Wrap(err)
		}
		if signer != tx.Account {
			return Wrap(fmt.Errorf("%w: eth signature signed by %s, expected %s",
				ErrInvalidSignature, signer.Hex(), tx.Account.Hex()))
		}
		return nil
	case ChangePubKeyAuthCREATE2:
		if addr := tx.EthAuthData.Create2Address(tx.NewPubKeyHash); addr != tx.Account {
			return Wrap(fmt.Errorf("%w: CREATE2 address %s, expected %s",
				ErrInvalidSignature, addr.Hex(), tx.Account.Hex()))
		}
		return nil
	default:
		return Wrap(fmt.Errorf("unknown ChangePubKey auth type %d", tx.EthAuthData.Type))
	}
}

// Sign sets the signature of the tx, sk must be the new signing key
func (tx *ChangePubKey) Sign(sk *babyjub.PrivateKey) (err error) {
	tx.Signature, err = signTx(tx, sk)
	return err
}

// VerifySignature returns the hash of the key that signed the tx
func (tx *ChangePubKey) VerifySignature() (PubKeyHash, error) {
	return verifyTx(tx, tx.Signature)
}

// CheckCorrectness checks ids, fee packability, time range, the L1
// authorization and that the tx is signed by the new key
func (tx *ChangePubKey) CheckCorrectness() error {
	if tx.Fee == nil {
		return Wrap(fmt.Errorf("ChangePubKey: fee must be set"))
	}
	if err := checkTxIDs(tx.AccountID, tx.FeeToken); err != nil {
		return Wrap(err)
	}
	if err := checkPackable(nil, []*big.Int{tx.Fee}); err != nil {
		return Wrap(err)
	}
	if err := tx.TimeRange.CheckCorrectness(); err != nil {
		return Wrap(err)
	}
	if err := tx.CheckEthAuth(); err != nil {
		return Wrap(err)
	}
	signer, err := tx.VerifySignature()
	if err != nil {
		return Wrap(err)
	}
	if signer != tx.NewPubKeyHash {
		return Wrap(fmt.Errorf("%w: signed by %s, expected %s", ErrInvalidSignature,
			signer, tx.NewPubKeyHash))
	}
	return nil
}
