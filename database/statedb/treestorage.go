package statedb

import (
	"github.com/iden3/go-merkletree/db"
)

// treeStorage is the storage of the account tree.  Tree nodes are keyed by
// the hash of their content and MerkleTree.Delete leaves them in place, so
// adding back a removed account writes nodes that are already stored with
// the same value.  The transactions of treeStorage only see their own writes,
// which lets MerkleTree.Add store those nodes again.
type treeStorage struct {
	db.Storage
}

// NewTx implements db.Storage
func (s treeStorage) NewTx() (db.Tx, error) {
	tx, err := s.Storage.NewTx()
	if err != nil {
		return nil, err
	}
	return &treeTx{Tx: tx, written: make(db.KvMap)}, nil
}

// WithPrefix implements db.Storage
func (s treeStorage) WithPrefix(prefix []byte) db.Storage {
	return treeStorage{s.Storage.WithPrefix(prefix)}
}

type treeTx struct {
	db.Tx
	written db.KvMap
}

// Get returns the value written by this transaction at k
func (tx *treeTx) Get(k []byte) ([]byte, error) {
	if v, ok := tx.written.Get(k); ok {
		return v, nil
	}
	return nil, db.ErrNotFound
}

// Put implements db.Tx
func (tx *treeTx) Put(k, v []byte) error {
	tx.written.Put(db.Clone(k), db.Clone(v))
	return tx.Tx.Put(k, v)
}

// Add implements db.Tx
func (tx *treeTx) Add(atx db.Tx) error {
	other, ok := atx.(*treeTx)
	if !ok {
		return tx.Tx.Add(atx)
	}
	for h, kv := range other.written {
		tx.written[h] = kv
	}
	return tx.Tx.Add(other.Tx)
}
