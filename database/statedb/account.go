package statedb

import (
	"fmt"
	"math/big"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/log"

	"github.com/cockroachdb/pebble"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-merkletree"
	"github.com/iden3/go-merkletree/db"
	pebbleStorage "github.com/iden3/go-merkletree/db/pebble"
)

// prefixedKey returns a new slice holding prefix followed by b
func prefixedKey(prefix, b []byte) []byte {
	k := make([]byte, 0, len(prefix)+len(b))
	k = append(k, prefix...)
	return append(k, b...)
}

// GetAccount returns the account for the given id, or
// common.ErrAccountNotFound
func (s *StateDB) GetAccount(id common.AccountID) (*common.Account, error) {
	return getAccountInTreeDB(s.db.DB(), id)
}

// getAccountInTreeDB reads the leaf hash stored for id and then the account
// bytes stored for that hash
func getAccountInTreeDB(sto db.Storage, id common.AccountID) (*common.Account, error) {
	idBytes := id.Bytes()
	vBytes, err := sto.Get(prefixedKey(PrefixKeyAccountID, idBytes[:]))
	if common.Unwrap(err) == db.ErrNotFound {
		return nil, common.Wrap(fmt.Errorf("%w: %d", common.ErrAccountNotFound, id))
	} else if err != nil {
		return nil, common.Wrap(err)
	}
	accBytes, err := sto.Get(prefixedKey(PrefixKeyAccHash, vBytes))
	if err != nil {
		return nil, common.Wrap(err)
	}
	return common.AccountFromBytes(accBytes)
}

// GetAccountByAddress returns the id and the account owned by addr
func (s *StateDB) GetAccountByAddress(addr ethCommon.Address) (common.AccountID, *common.Account, error) {
	b, err := s.db.DB().Get(prefixedKey(PrefixKeyAddr, addr.Bytes()))
	if common.Unwrap(err) == db.ErrNotFound {
		return 0, nil, common.Wrap(fmt.Errorf("%w: %s", common.ErrAccountNotFound, addr.Hex()))
	} else if err != nil {
		return 0, nil, common.Wrap(err)
	}
	id, err := common.AccountIDFromBytes(b)
	if err != nil {
		return 0, nil, common.Wrap(err)
	}
	account, err := s.GetAccount(id)
	if err != nil {
		return 0, nil, common.Wrap(err)
	}
	return id, account, nil
}

// InsertAccount stores account at id, replacing the account stored there if
// any, and updates the address index, the merkle tree and the next free id.
// The tree is written first and the indexes in one batch after it, so a
// failed InsertAccount leaves the ledger as it was.
func (s *StateDB) InsertAccount(id common.AccountID, account *common.Account) error {
	if id > common.MaxAccountID {
		return common.Wrap(fmt.Errorf("%w: %d", common.ErrAccountIDOutOfRange, id))
	}
	old, err := s.GetAccount(id)
	exists := err == nil
	if err != nil && !common.Is(err, common.ErrAccountNotFound) {
		return common.Wrap(err)
	}
	v, err := account.HashValue()
	if err != nil {
		return common.Wrap(err)
	}
	accountBytes, err := account.Bytes()
	if err != nil {
		return common.Wrap(err)
	}

	var oldValue *big.Int
	if exists {
		if oldValue, err = old.HashValue(); err != nil {
			return common.Wrap(err)
		}
		if _, err := s.AccountTree.Update(id.BigInt(), v); err != nil {
			return common.Wrap(err)
		}
	} else if err := s.AccountTree.Add(id.BigInt(), v); err != nil {
		return common.Wrap(err)
	}

	idBytes := id.Bytes()
	b := s.db.NewBatch()
	err = func() error {
		if exists && old.Address != account.Address {
			if err := b.Delete(prefixedKey(PrefixKeyAddr, old.Address.Bytes())); err != nil {
				return err
			}
		}
		if err := b.Set(prefixedKey(PrefixKeyAccHash, v.Bytes()), accountBytes); err != nil {
			return err
		}
		if err := b.Set(prefixedKey(PrefixKeyAccountID, idBytes[:]), v.Bytes()); err != nil {
			return err
		}
		if err := b.Set(prefixedKey(PrefixKeyAddr, account.Address.Bytes()), idBytes[:]); err != nil {
			return err
		}
		if id >= s.db.NextAccountID {
			return b.SetNextAccountID(id + 1)
		}
		return nil
	}()
	if err != nil {
		b.Discard()
	} else {
		err = s.db.Commit(b)
	}
	if err != nil {
		s.revertLeaf(id, oldValue)
		return common.Wrap(err)
	}
	log.Debugw("statedb: account inserted", "id", id, "address", account.Address.Hex(),
		"nonce", account.Nonce, "new", !exists)
	return nil
}

// RemoveAccount deletes the account at id from the storage and the merkle
// tree.  The freed id is not reused.
func (s *StateDB) RemoveAccount(id common.AccountID) error {
	account, err := s.GetAccount(id)
	if err != nil {
		return common.Wrap(err)
	}
	v, err := account.HashValue()
	if err != nil {
		return common.Wrap(err)
	}
	if err := s.AccountTree.Delete(id.BigInt()); err != nil {
		return common.Wrap(err)
	}
	idBytes := id.Bytes()
	b := s.db.NewBatch()
	err = b.Delete(prefixedKey(PrefixKeyAccountID, idBytes[:]))
	if err == nil {
		err = b.Delete(prefixedKey(PrefixKeyAddr, account.Address.Bytes()))
	}
	if err != nil {
		b.Discard()
	} else {
		err = s.db.Commit(b)
	}
	if err != nil {
		if addErr := s.AccountTree.Add(id.BigInt(), v); addErr != nil {
			log.Errorw("statedb: restoring removed leaf", "id", id, "err", addErr)
		}
		return common.Wrap(err)
	}
	log.Debugw("statedb: account removed", "id", id, "address", account.Address.Hex())
	return nil
}

// revertLeaf sets the leaf of id back to oldValue, or removes it when
// oldValue is nil
func (s *StateDB) revertLeaf(id common.AccountID, oldValue *big.Int) {
	var err error
	if oldValue == nil {
		err = s.AccountTree.Delete(id.BigInt())
	} else {
		_, err = s.AccountTree.Update(id.BigInt(), oldValue)
	}
	if err != nil {
		log.Errorw("statedb: reverting account leaf", "id", id, "err", err)
	}
}

// NextFreeAccountID returns the id the next created account will take
func (s *StateDB) NextFreeAccountID() common.AccountID {
	return s.db.NextAccountID
}

// SetNextFreeAccountID moves the next free id, used to give back the id of an
// account created by an operation that was rolled back
func (s *StateDB) SetNextFreeAccountID(id common.AccountID) error {
	return common.Wrap(s.db.SetNextAccountID(id))
}

// GetAccounts returns all the accounts of the StateDB sorted by id
func (s *StateDB) GetAccounts() ([]common.AccountState, error) {
	return getAccountsInTreeDB(s.db.DB())
}

// getAccountsInTreeDB iterates the AccountID index of sto, which keeps the
// ids in big-endian order
func getAccountsInTreeDB(sto *pebbleStorage.Storage) ([]common.AccountState, error) {
	upper := prefixedKey(PrefixKeyAccountID, nil)
	upper[len(upper)-1]++
	iter := sto.Pebble().NewIter(&pebble.IterOptions{
		LowerBound: PrefixKeyAccountID,
		UpperBound: upper,
	})
	var ids []common.AccountID
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := common.AccountIDFromBytes(iter.Key()[len(PrefixKeyAccountID):])
		if err != nil {
			_ = iter.Close()
			return nil, common.Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, common.Wrap(err)
	}
	accounts := make([]common.AccountState, 0, len(ids))
	for _, id := range ids {
		account, err := getAccountInTreeDB(sto, id)
		if err != nil {
			return nil, common.Wrap(err)
		}
		accounts = append(accounts, common.AccountState{ID: id, Account: account})
	}
	return accounts, nil
}

// AccountProof is the merkle proof of an account leaf against a root
type AccountProof struct {
	ID    common.AccountID
	Root  *merkletree.Hash
	Proof *merkletree.CircomVerifierProof
}

// GetAccountProof returns the proof of the account at id against the current
// root
func (s *StateDB) GetAccountProof(id common.AccountID) (*AccountProof, error) {
	if _, err := s.GetAccount(id); err != nil {
		return nil, common.Wrap(err)
	}
	p, err := s.MTGetAccountProof(id)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &AccountProof{ID: id, Root: s.Root(), Proof: p}, nil
}
