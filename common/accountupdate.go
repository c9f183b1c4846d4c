package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// AccountUpdateType is the kind of change an AccountUpdate describes
type AccountUpdateType int

const (
	// AccountUpdateTypeCreate is the creation of an account
	AccountUpdateTypeCreate AccountUpdateType = iota
	// AccountUpdateTypeDelete is the removal of an account
	AccountUpdateTypeDelete
	// AccountUpdateTypeBalance is the change of one token balance
	AccountUpdateTypeBalance
	// AccountUpdateTypeChangePubKeyHash is the change of the signing key
	AccountUpdateTypeChangePubKeyHash
)

func (t AccountUpdateType) String() string {
	switch t {
	case AccountUpdateTypeCreate:
		return "Create"
	case AccountUpdateTypeDelete:
		return "Delete"
	case AccountUpdateTypeBalance:
		return "UpdateBalance"
	case AccountUpdateTypeChangePubKeyHash:
		return "ChangePubKeyHash"
	default:
		return fmt.Sprintf("AccountUpdateType(%d)", int(t))
	}
}

// AccountUpdate is one atomic change of one account. Only the fields of the
// given Type are meaningful:
//   - Create, Delete: Address, Nonce
//   - Balance: Token, OldBalance, NewBalance, OldNonce, NewNonce
//   - ChangePubKeyHash: OldPubKeyHash, NewPubKeyHash, OldNonce, NewNonce
type AccountUpdate struct {
	AccountID     AccountID         `json:"accountId"`
	Type          AccountUpdateType `json:"type"`
	Address       ethCommon.Address `json:"address,omitempty"`
	Nonce         Nonce             `json:"nonce,omitempty"`
	Token         TokenID           `json:"token,omitempty"`
	OldBalance    *big.Int          `json:"oldBalance,omitempty"`
	NewBalance    *big.Int          `json:"newBalance,omitempty"`
	OldNonce      Nonce             `json:"oldNonce,omitempty"`
	NewNonce      Nonce             `json:"newNonce,omitempty"`
	OldPubKeyHash PubKeyHash        `json:"oldPubKeyHash,omitempty"`
	NewPubKeyHash PubKeyHash        `json:"newPubKeyHash,omitempty"`
}

// NewCreateUpdate returns the update that creates account id owned by addr
func NewCreateUpdate(id AccountID, addr ethCommon.Address, nonce Nonce) AccountUpdate {
	return AccountUpdate{AccountID: id, Type: AccountUpdateTypeCreate, Address: addr, Nonce: nonce}
}

// NewDeleteUpdate returns the update that removes account id
func NewDeleteUpdate(id AccountID, addr ethCommon.Address, nonce Nonce) AccountUpdate {
	return AccountUpdate{AccountID: id, Type: AccountUpdateTypeDelete, Address: addr, Nonce: nonce}
}

// NewBalanceUpdate returns the update of one token balance of account id
func NewBalanceUpdate(id AccountID, token TokenID, oldBalance, newBalance *big.Int,
	oldNonce, newNonce Nonce) AccountUpdate {
	return AccountUpdate{
		AccountID:  id,
		Type:       AccountUpdateTypeBalance,
		Token:      token,
		OldBalance: new(big.Int).Set(oldBalance),
		NewBalance: new(big.Int).Set(newBalance),
		OldNonce:   oldNonce,
		NewNonce:   newNonce,
	}
}

// NewChangePubKeyHashUpdate returns the update of the signing key of account
// id
func NewChangePubKeyHashUpdate(id AccountID, oldHash, newHash PubKeyHash,
	oldNonce, newNonce Nonce) AccountUpdate {
	return AccountUpdate{
		AccountID:     id,
		Type:          AccountUpdateTypeChangePubKeyHash,
		OldPubKeyHash: oldHash,
		NewPubKeyHash: newHash,
		OldNonce:      oldNonce,
		NewNonce:      newNonce,
	}
}

// Reversed returns the update that undoes u
func (u AccountUpdate) Reversed() AccountUpdate {
	r := u
	switch u.Type {
	case AccountUpdateTypeCreate:
		r.Type = AccountUpdateTypeDelete
	case AccountUpdateTypeDelete:
		r.Type = AccountUpdateTypeCreate
	case AccountUpdateTypeBalance:
		r.OldBalance, r.NewBalance = u.NewBalance, u.OldBalance
		r.OldNonce, r.NewNonce = u.NewNonce, u.OldNonce
	case AccountUpdateTypeChangePubKeyHash:
		r.OldPubKeyHash, r.NewPubKeyHash = u.NewPubKeyHash, u.OldPubKeyHash
		r.OldNonce, r.NewNonce = u.NewNonce, u.OldNonce
	}
	return r
}

// ReversedUpdates returns the updates that undo the given ordered list, in
// reverse order
func ReversedUpdates(updates []AccountUpdate) []AccountUpdate {
	r := make([]AccountUpdate, len(updates))
	for i := range updates {
		r[len(updates)-1-i] = updates[i].Reversed()
	}
	return r
}
