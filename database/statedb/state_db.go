package statedb

import (
	"errors"
	"fmt"
	"math/big"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/database/kvdb"
	"tokamak-zkrollup/log"

	"github.com/iden3/go-merkletree"
	"github.com/iden3/go-merkletree/db"
	"github.com/iden3/go-merkletree/db/pebble"
)

const (
	// TypeBlockBuilder defines a StateDB used by the BlockBuilder, that
	// applies new txs and seals blocks
	TypeBlockBuilder = "blockbuilder"
	// MaxNLevels is the maximum value of NLevels for the merkle tree,
	// which comes from the fact that AccountID has 24 usable bits.
	MaxNLevels = common.AccountTreeDepth
)

// Config of the StateDB
type Config struct {
	// Path where the checkpoints will be stored
	Path string
	// Keep is the number of old checkpoints to keep.  If 0, all
	// checkpoints are kept.
	Keep int
	// NoLast skips having an opened DB with a checkpoint to the last
	// block for thread-safe reads.
	NoLast bool
	// Type of StateDB
	Type TypeStateDB
	// NLevels is the number of merkle tree levels.  If 0, MaxNLevels is
	// used.
	NLevels int
}

var (
	// ErrInvalidNLevels is used when the configured NLevels can not hold
	// every AccountID
	ErrInvalidNLevels = errors.New("invalid number of merkle tree levels")

	// PrefixKeyAccHash is the key prefix for the account leaf bytes, keyed
	// by the leaf hash
	PrefixKeyAccHash = []byte("accHash:")
	// PrefixKeyAccountID is the key prefix for the leaf hash of an account,
	// keyed by AccountID
	PrefixKeyAccountID = []byte("accID:")
	// PrefixKeyAddr is the key prefix for the AccountID of an address
	PrefixKeyAddr = []byte("addr:")
	// PrefixKeyMT is the key prefix for account merkle tree in the db
	PrefixKeyMT = []byte("m:")
)

// TypeStateDB determines the type of StateDB
type TypeStateDB string

// StateDB is the account ledger: accounts stored by hash in a checkpointed
// pebble KVDB, with an address index and a sparse merkle tree keyed by
// AccountID.  StateDB does no locking, it expects a single writer.
type StateDB struct {
	cfg         Config
	db          *kvdb.KVDB
	AccountTree *merkletree.MerkleTree
}

// Last is a consistent view to the last checkpoint of a StateDB
type Last struct {
	db *pebble.Storage
}

// GetAccount returns the account for the given id in the last checkpoint
func (s *Last) GetAccount(id common.AccountID) (*common.Account, error) {
	return getAccountInTreeDB(s.db, id)
}

// GetAccounts returns all the accounts in the last checkpoint sorted by id
func (s *Last) GetAccounts() ([]common.AccountState, error) {
	return getAccountsInTreeDB(s.db)
}

// GetCurrentBlock returns the block number of the last checkpoint
func (s *Last) GetCurrentBlock() (common.BlockNumber, error) {
	b, err := s.db.Get(kvdb.KeyCurrentBlock)
	if common.Unwrap(err) == db.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, common.Wrap(err)
	}
	return common.BlockNumberFromBytes(b)
}

// DB returns the underlying storage of Last
func (s *Last) DB() db.Storage {
	return s.db
}

// NewStateDB initializes a new StateDB.
func NewStateDB(cfg Config) (*StateDB, error) {
	if cfg.NLevels == 0 {
		cfg.NLevels = MaxNLevels
	}
	if cfg.NLevels < 0 || cfg.NLevels > MaxNLevels {
		return nil, common.Wrap(fmt.Errorf("%w: %d", ErrInvalidNLevels, cfg.NLevels))
	}
	kv, err := kvdb.NewKVDB(kvdb.Config{Path: cfg.Path, Keep: cfg.Keep, NoLast: cfg.NoLast})
	if err != nil {
		return nil, common.Wrap(err)
	}
	s := &StateDB{cfg: cfg, db: kv}
	if err := s.openAccountTree(); err != nil {
		kv.Close()
		return nil, common.Wrap(err)
	}
	return s, nil
}

// openAccountTree loads the account tree from the head storage
func (s *StateDB) openAccountTree() error {
	mt, err := merkletree.NewMerkleTree(treeStorage{s.db.StorageWithPrefix(PrefixKeyMT)},
		s.cfg.NLevels)
	if err != nil {
		return common.Wrap(err)
	}
	s.AccountTree = mt
	return nil
}

// Type returns the StateDB configured Type
func (s *StateDB) Type() TypeStateDB {
	return s.cfg.Type
}

// LastRead is a thread-safe method to query the last checkpoint of the StateDB
// via the Last type methods
func (s *StateDB) LastRead(fn func(sdbLast *Last) error) error {
	return s.db.LastRead(
		func(db *pebble.Storage) error {
			return fn(&Last{
				db: db,
			})
		},
	)
}

// LastGetAccount is a thread-safe method to query an account in the last
// checkpoint of the StateDB.
func (s *StateDB) LastGetAccount(id common.AccountID) (*common.Account, error) {
	var account *common.Account
	if err := s.LastRead(func(sdb *Last) error {
		var err error
		account, err = sdb.GetAccount(id)
		return err
	}); err != nil {
		return nil, common.Wrap(err)
	}
	return account, nil
}

// Close closes the StateDB.
func (s *StateDB) Close() {
	s.db.Close()
}

// Reset discards the state written after the checkpoint of blockNum, and
// the checkpoints of the later blocks
func (s *StateDB) Reset(blockNum common.BlockNumber) error {
	log.Debugw("statedb: reset", "block", blockNum, "type", s.cfg.Type)
	if err := s.db.Reset(blockNum); err != nil {
		return common.Wrap(err)
	}
	return s.openAccountTree()
}

// MakeCheckpoint seals the current state as the next block
func (s *StateDB) MakeCheckpoint() error {
	log.Debugw("statedb: checkpoint", "block", s.CurrentBlock()+1, "type", s.cfg.Type,
		"root", s.RootBigInt().String())
	return s.db.MakeCheckpoint()
}

// CurrentBlock returns the number of the last checkpointed block
func (s *StateDB) CurrentBlock() common.BlockNumber {
	return s.db.CurrentBlock
}

// CheckpointExists returns true if the checkpoint exists
func (s *StateDB) CheckpointExists(blockNum common.BlockNumber) (bool, error) {
	return s.db.CheckpointExists(blockNum)
}

// Root returns the root of the account tree
func (s *StateDB) Root() *merkletree.Hash {
	return s.AccountTree.Root()
}

// RootBigInt returns the root of the account tree as a field element
func (s *StateDB) RootBigInt() *big.Int {
	return s.AccountTree.Root().BigInt()
}

// MTGetAccountProof returns the CircomVerifierProof of the leaf of the given
// AccountID
func (s *StateDB) MTGetAccountProof(id common.AccountID) (*merkletree.CircomVerifierProof, error) {
	p, err := s.AccountTree.GenerateSCVerifierProof(id.BigInt(), s.AccountTree.Root())
	if err != nil {
		return nil, common.Wrap(err)
	}
	return p, nil
}
