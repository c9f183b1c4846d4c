package common

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"reflect"
	"sort"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/mitchellh/copystructure"
)

const (
	// accountHeaderBytesLen is address + nonce + pubkey hash + balances count
	accountHeaderBytesLen = AddressBytesLen + NonceBytesLen + PubKeyHashBytesLen + 2
	// balanceEntryBytesLen is token id + balance
	balanceEntryBytesLen = TokenIDBytesLen + BalanceBytesLen
)

func init() {
	// big.Int carries an internal slice, copystructure needs to copy it
	// through the public API to get a real deep copy
	copystructure.Copiers[reflect.TypeOf(big.Int{})] =
		func(raw interface{}) (interface{}, error) {
			in := raw.(big.Int)
			out := new(big.Int).Set(&in)
			return *out, nil
		}
}

// Account is the state of a rollup account. The Poseidon hash of its
// contents is the value stored in the leaf of the account Merkle tree.
type Account struct {
	Address    ethCommon.Address    `json:"address"`
	Nonce      Nonce                `json:"nonce"`
	PubKeyHash PubKeyHash           `json:"pubKeyHash"`
	Balances   map[TokenID]*big.Int `json:"balances"`
}

// NewAccount returns an empty account owned by addr with no signing key set
func NewAccount(addr ethCommon.Address) *Account {
	return &Account{
		Address:  addr,
		Balances: make(map[TokenID]*big.Int),
	}
}

// GetBalance returns a copy of the balance of the given token, zero if the
// account never held it
func (a *Account) GetBalance(token TokenID) *big.Int {
	if b, ok := a.Balances[token]; ok && b != nil {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// SetBalance sets the balance of the given token, removing the entry when the
// balance is zero
func (a *Account) SetBalance(token TokenID, amount *big.Int) {
	if a.Balances == nil {
		a.Balances = make(map[TokenID]*big.Int)
	}
	if amount.Sign() == 0 {
		delete(a.Balances, token)
		return
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// AddBalance credits amount of token to the account
func (a *Account) AddBalance(token TokenID, amount *big.Int) {
	a.SetBalance(token, new(big.Int).Add(a.GetBalance(token), amount))
}

// SubBalance debits amount of token from the account. The balance never goes
// negative: ErrNotEnoughBalance is returned instead and the account is not
// modified.
func (a *Account) SubBalance(token TokenID, amount *big.Int) error {
	balance := a.GetBalance(token)
	if balance.Cmp(amount) < 0 {
		return Wrap(fmt.Errorf("%w: token %d has %s, needs %s", ErrNotEnoughBalance,
			token, balance, amount))
	}
	a.SetBalance(token, balance.Sub(balance, amount))
	return nil
}

// IsLocked returns true when the account has no signing key set
func (a *Account) IsLocked() bool {
	return a.PubKeyHash.IsEmpty()
}

// IsEmpty returns true when the account holds no balance at all
func (a *Account) IsEmpty() bool {
	for _, b := range a.Balances {
		if b.Sign() != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the account
func (a *Account) Clone() (*Account, error) {
	c, err := copystructure.Copy(a)
	if err != nil {
		return nil, Wrap(err)
	}
	cloned := c.(*Account)
	if cloned.Balances == nil {
		cloned.Balances = make(map[TokenID]*big.Int)
	}
	return cloned, nil
}

// sortedTokens returns the tokens with non-zero balance in ascending order
func (a *Account) sortedTokens() []TokenID {
	tokens := make([]TokenID, 0, len(a.Balances))
	for t, b := range a.Balances {
		if b != nil && b.Sign() != 0 {
			tokens = append(tokens, t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}

// Bytes returns the storage representation of the Account:
// [address 20][nonce 4][pubKeyHash 20][count 2] followed by count entries of
// [token 2][balance 16], ordered by token id.
func (a *Account) Bytes() ([]byte, error) {
	tokens := a.sortedTokens()
	b := make([]byte, accountHeaderBytesLen+len(tokens)*balanceEntryBytesLen)
	copy(b[0:20], a.Address.Bytes())
	nonceBytes := a.Nonce.Bytes()
	copy(b[20:24], nonceBytes[:])
	copy(b[24:44], a.PubKeyHash[:])
	binary.BigEndian.PutUint16(b[44:46], uint16(len(tokens)))
	offset := accountHeaderBytesLen
	for _, t := range tokens {
		tokenBytes := t.Bytes()
		copy(b[offset:offset+TokenIDBytesLen], tokenBytes[:])
		balanceBytes, err := BigIntToBytes16(a.Balances[t])
		if err != nil {
			return nil, Wrap(err)
		}
		copy(b[offset+TokenIDBytesLen:offset+balanceEntryBytesLen], balanceBytes[:])
		offset += balanceEntryBytesLen
	}
	return b, nil
}

// AccountFromBytes returns an Account from its storage representation
func AccountFromBytes(b []byte) (*Account, error) {
	if len(b) < accountHeaderBytesLen {
		return nil, Wrap(fmt.Errorf("AccountFromBytes: %w: got %d, expected at least %d",
			ErrInvalidLength, len(b), accountHeaderBytesLen))
	}
	n := int(binary.BigEndian.Uint16(b[44:46]))
	if len(b) != accountHeaderBytesLen+n*balanceEntryBytesLen {
		return nil, Wrap(fmt.Errorf("AccountFromBytes: %w: got %d, expected %d",
			ErrInvalidLength, len(b), accountHeaderBytesLen+n*balanceEntryBytesLen))
	}
	a := NewAccount(ethCommon.BytesToAddress(b[0:20]))
	nonce, err := NonceFromBytes(b[20:24])
	if err != nil {
		return nil, Wrap(err)
	}
	a.Nonce = nonce
	copy(a.PubKeyHash[:], b[24:44])
	offset := accountHeaderBytesLen
	for i := 0; i < n; i++ {
		token, err := TokenIDFromBytes(b[offset : offset+TokenIDBytesLen])
		if err != nil {
			return nil, Wrap(err)
		}
		a.SetBalance(token, new(big.Int).SetBytes(b[offset+TokenIDBytesLen:offset+balanceEntryBytesLen]))
		offset += balanceEntryBytesLen
	}
	return a, nil
}

// BalancesHash returns a Poseidon chain over the non-zero balances of the
// account ordered by token id
func (a *Account) BalancesHash() (*big.Int, error) {
	h := big.NewInt(0)
	for _, t := range a.sortedTokens() {
		var err error
		h, err = poseidon.Hash([]*big.Int{h, t.BigInt(), a.Balances[t]})
		if err != nil {
			return nil, Wrap(err)
		}
	}
	return h, nil
}

// HashValue returns the value of the leaf of the account in the account tree
func (a *Account) HashValue() (*big.Int, error) {
	balances, err := a.BalancesHash()
	if err != nil {
		return nil, Wrap(err)
	}
	return poseidon.Hash([]*big.Int{
		big.NewInt(int64(a.Nonce)),
		new(big.Int).SetBytes(a.PubKeyHash[:]),
		EthAddrToBigInt(a.Address),
		balances,
	})
}

// AccountState is an (AccountID, Account) pair
type AccountState struct {
	ID      AccountID `json:"id"`
	Account *Account  `json:"account"`
}
