// Package kvdb keeps the pebble storage of the ledger together with one
// checkpoint per sealed block.
//
// Layout under Config.Path:
//
//	head/       storage written by the operations of the block being built
//	sealed/     copy of the last sealed block, opened for concurrent reads
//	block-N/    checkpoint of sealed block N
//
// Sealing a block writes the block number into head and copies head to
// block-N and sealed/.  Resetting to block N drops every checkpoint above N
// and replaces head with a copy of block-N, so unsealed writes are lost.
package kvdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/log"

	"github.com/cockroachdb/pebble"
	"github.com/iden3/go-merkletree/db"
	pebbleStorage "github.com/iden3/go-merkletree/db/pebble"
)

const (
	dirHead          = "head"
	dirSealed        = "sealed"
	checkpointPrefix = "block-"
	// DefaultKeep is the default number of block checkpoints kept
	DefaultKeep = 128
)

var (
	// KeyCurrentBlock is the key of the number of the last sealed block
	KeyCurrentBlock = []byte("k:currentblock")
	// keyNextAccountID is the key of the smallest AccountID never assigned
	keyNextAccountID = []byte("k:nextaccountid")

	// ErrNoLast is returned by LastRead when the KVDB keeps no sealed view
	ErrNoLast = fmt.Errorf("no sealed view of the last block")
	// ErrCheckpointNotFound is returned when there is no checkpoint for a
	// block
	ErrCheckpointNotFound = fmt.Errorf("checkpoint not found")
	// ErrCheckpointGap is returned when the stored checkpoints are not a
	// contiguous range of blocks
	ErrCheckpointGap = fmt.Errorf("gap between checkpoints")
)

// Config of the KVDB
type Config struct {
	// Path of the directory holding head, sealed and the checkpoints
	Path string
	// Keep is the number of block checkpoints kept.  If 0, all of them
	// are kept.
	Keep int
	// NoLast disables the sealed view used by LastRead
	NoLast bool
}

// KVDB is the head storage of the ledger plus its block checkpoints.  It
// expects a single writer; LastRead may be called concurrently.
type KVDB struct {
	cfg Config
	db  *pebbleStorage.Storage
	// CurrentBlock is the number of the last sealed block
	CurrentBlock common.BlockNumber
	// NextAccountID is the smallest AccountID never assigned in head
	NextAccountID common.AccountID
	sealed        *sealedView
}

// sealedView holds the storage of the last sealed block
type sealedView struct {
	dir string
	rw  sync.RWMutex
	db  *pebbleStorage.Storage
}

// replace reopens the view from a copy of checkpoint, or empty when
// checkpoint is ""
func (v *sealedView) replace(checkpoint string) error {
	v.rw.Lock()
	defer v.rw.Unlock()
	v.closeLocked()
	if err := os.RemoveAll(v.dir); err != nil {
		return common.Wrap(err)
	}
	if checkpoint != "" {
		if err := copyCheckpoint(checkpoint, v.dir); err != nil {
			return common.Wrap(err)
		}
	}
	sto, err := pebbleStorage.NewPebbleStorage(v.dir, false)
	if err != nil {
		return common.Wrap(err)
	}
	v.db = sto
	return nil
}

func (v *sealedView) closeLocked() {
	if v.db != nil {
		v.db.Close()
		v.db = nil
	}
}

// copyCheckpoint copies the pebble database at src into dst
func copyCheckpoint(src, dst string) error {
	sto, err := pebbleStorage.NewPebbleStorage(src, true)
	if err != nil {
		return common.Wrap(err)
	}
	defer sto.Close()
	return common.Wrap(sto.Pebble().Checkpoint(dst))
}

// NewKVDB opens the KVDB at cfg.Path on its last sealed block
func NewKVDB(cfg Config) (*KVDB, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil { //nolint:gomnd
		return nil, common.Wrap(err)
	}
	k := &KVDB{cfg: cfg}
	if !cfg.NoLast {
		k.sealed = &sealedView{dir: filepath.Join(cfg.Path, dirSealed)}
	}
	if err := k.openHead(); err != nil {
		return nil, common.Wrap(err)
	}
	if err := k.Reset(k.CurrentBlock); err != nil {
		k.Close()
		return nil, common.Wrap(err)
	}
	return k, nil
}

// openHead opens head and loads the block number and next AccountID it holds
func (k *KVDB) openHead() error {
	sto, err := pebbleStorage.NewPebbleStorage(filepath.Join(k.cfg.Path, dirHead), false)
	if err != nil {
		return common.Wrap(err)
	}
	k.db = sto
	if k.CurrentBlock, err = readBlockNumber(sto); err != nil {
		return common.Wrap(err)
	}
	idBytes, err := sto.Get(keyNextAccountID)
	switch {
	case common.Unwrap(err) == db.ErrNotFound:
		k.NextAccountID = 0
	case err != nil:
		return common.Wrap(err)
	default:
		if k.NextAccountID, err = common.AccountIDFromBytes(idBytes); err != nil {
			return common.Wrap(err)
		}
	}
	return nil
}

// readBlockNumber returns the block number stored in sto, 0 if none
func readBlockNumber(sto db.Storage) (common.BlockNumber, error) {
	b, err := sto.Get(KeyCurrentBlock)
	if common.Unwrap(err) == db.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, common.Wrap(err)
	}
	return common.BlockNumberFromBytes(b)
}

// LastRead calls fn with the storage of the last sealed block while holding
// the read lock of the sealed view
func (k *KVDB) LastRead(fn func(db *pebbleStorage.Storage) error) error {
	if k.sealed == nil {
		return common.Wrap(ErrNoLast)
	}
	k.sealed.rw.RLock()
	defer k.sealed.rw.RUnlock()
	return fn(k.sealed.db)
}

// DB returns the head storage
func (k *KVDB) DB() *pebbleStorage.Storage {
	return k.db
}

// StorageWithPrefix returns the head storage under prefix
func (k *KVDB) StorageWithPrefix(prefix []byte) db.Storage {
	return k.db.WithPrefix(prefix)
}

// Batch groups writes to head that are committed atomically by KVDB.Commit
type Batch struct {
	b      *pebble.Batch
	nextID *common.AccountID
}

// NewBatch returns an empty Batch over head
func (k *KVDB) NewBatch() *Batch {
	return &Batch{b: k.db.Pebble().NewBatch()}
}

// Set stores value at key
func (b *Batch) Set(key, value []byte) error {
	return common.Wrap(b.b.Set(key, value, nil))
}

// Delete removes key
func (b *Batch) Delete(key []byte) error {
	return common.Wrap(b.b.Delete(key, nil))
}

// SetNextAccountID stores id as the next free AccountID
func (b *Batch) SetNextAccountID(id common.AccountID) error {
	idBytes := id.Bytes()
	if err := b.b.Set(keyNextAccountID, idBytes[:], nil); err != nil {
		return common.Wrap(err)
	}
	b.nextID = &id
	return nil
}

// Discard releases a Batch that will not be committed
func (b *Batch) Discard() {
	_ = b.b.Close()
}

// Commit writes b to head.  A batch that fails to commit leaves head
// untouched.
func (k *KVDB) Commit(b *Batch) error {
	defer b.b.Close() //nolint:errcheck
	if err := b.b.Commit(pebble.Sync); err != nil {
		return common.Wrap(err)
	}
	if b.nextID != nil {
		k.NextAccountID = *b.nextID
	}
	return nil
}

// SetNextAccountID stores id as the next free AccountID of head
func (k *KVDB) SetNextAccountID(id common.AccountID) error {
	b := k.NewBatch()
	if err := b.SetNextAccountID(id); err != nil {
		return common.Wrap(err)
	}
	return common.Wrap(k.Commit(b))
}

func (k *KVDB) checkpointDir(blockNum common.BlockNumber) string {
	return filepath.Join(k.cfg.Path, checkpointPrefix+strconv.FormatUint(uint64(blockNum), 10))
}

// Reset drops the checkpoints above blockNum and replaces head with the
// checkpoint of blockNum, or with an empty storage when blockNum is 0
func (k *KVDB) Reset(blockNum common.BlockNumber) error {
	checkpoint := ""
	if blockNum > 0 {
		checkpoint = k.checkpointDir(blockNum)
		if _, err := os.Stat(checkpoint); os.IsNotExist(err) {
			return common.Wrap(fmt.Errorf("%w: block %d", ErrCheckpointNotFound, blockNum))
		} else if err != nil {
			return common.Wrap(err)
		}
	}
	blocks, err := k.ListCheckpoints()
	if err != nil {
		return common.Wrap(err)
	}
	for _, bn := range blocks {
		if common.BlockNumber(bn) > blockNum {
			if err := k.DeleteCheckpoint(common.BlockNumber(bn)); err != nil {
				return common.Wrap(err)
			}
		}
	}

	if k.db != nil {
		k.db.Close()
		k.db = nil
	}
	head := filepath.Join(k.cfg.Path, dirHead)
	if err := os.RemoveAll(head); err != nil {
		return common.Wrap(err)
	}
	if checkpoint != "" {
		if err := copyCheckpoint(checkpoint, head); err != nil {
			return common.Wrap(err)
		}
	}
	if err := k.openHead(); err != nil {
		return common.Wrap(err)
	}
	if k.sealed != nil {
		if err := k.sealed.replace(checkpoint); err != nil {
			return common.Wrap(err)
		}
	}
	log.Debugw("kvdb: head reset", "block", k.CurrentBlock, "nextAccountID", k.NextAccountID)
	return nil
}

// MakeCheckpoint seals head as block CurrentBlock+1: the block number is
// written to head, head is copied to the block checkpoint and to the sealed
// view, and the checkpoints beyond Keep are deleted.
func (k *KVDB) MakeCheckpoint() error {
	blockNum := k.CurrentBlock + 1
	b := k.NewBatch()
	if err := b.Set(KeyCurrentBlock, blockNum.Bytes()); err != nil {
		return common.Wrap(err)
	}
	if err := k.Commit(b); err != nil {
		return common.Wrap(err)
	}
	k.CurrentBlock = blockNum

	checkpoint := k.checkpointDir(blockNum)
	// left over by a Reset that was interrupted
	if err := os.RemoveAll(checkpoint); err != nil {
		return common.Wrap(err)
	}
	if err := k.db.Pebble().Checkpoint(checkpoint); err != nil {
		return common.Wrap(err)
	}
	if k.sealed != nil {
		if err := k.sealed.replace(checkpoint); err != nil {
			return common.Wrap(err)
		}
	}
	return common.Wrap(k.DeleteOldCheckpoints())
}

// ListCheckpoints returns the sorted block numbers of the stored
// checkpoints.  They must be a contiguous range.
func (k *KVDB) ListCheckpoints() ([]int, error) {
	entries, err := os.ReadDir(k.cfg.Path)
	if err != nil {
		return nil, common.Wrap(err)
	}
	blocks := []int{}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), checkpointPrefix) {
			continue
		}
		bn, err := strconv.Atoi(strings.TrimPrefix(e.Name(), checkpointPrefix))
		if err != nil {
			return nil, common.Wrap(fmt.Errorf("invalid checkpoint %q: %w", e.Name(), err))
		}
		blocks = append(blocks, bn)
	}
	sort.Ints(blocks)
	for i := 1; i < len(blocks); i++ {
		if blocks[i] != blocks[i-1]+1 {
			log.Errorw("kvdb: gap between checkpoints", "checkpoints", blocks)
			return nil, common.Wrap(fmt.Errorf("%w: %d after %d", ErrCheckpointGap,
				blocks[i], blocks[i-1]))
		}
	}
	return blocks, nil
}

// DeleteCheckpoint removes the checkpoint of blockNum
func (k *KVDB) DeleteCheckpoint(blockNum common.BlockNumber) error {
	dir := k.checkpointDir(blockNum)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return common.Wrap(fmt.Errorf("%w: block %d", ErrCheckpointNotFound, blockNum))
	} else if err != nil {
		return common.Wrap(err)
	}
	return common.Wrap(os.RemoveAll(dir))
}

// DeleteOldCheckpoints keeps only the last cfg.Keep checkpoints
func (k *KVDB) DeleteOldCheckpoints() error {
	blocks, err := k.ListCheckpoints()
	if err != nil {
		return common.Wrap(err)
	}
	if k.cfg.Keep == 0 || len(blocks) <= k.cfg.Keep {
		return nil
	}
	for _, bn := range blocks[:len(blocks)-k.cfg.Keep] {
		if err := k.DeleteCheckpoint(common.BlockNumber(bn)); err != nil {
			return common.Wrap(err)
		}
	}
	return nil
}

// CheckpointExists reports whether the checkpoint of blockNum is stored
func (k *KVDB) CheckpointExists(blockNum common.BlockNumber) (bool, error) {
	if _, err := os.Stat(k.checkpointDir(blockNum)); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, common.Wrap(err)
	}
	return true, nil
}

// Close closes head and the sealed view
func (k *KVDB) Close() {
	if k.db != nil {
		k.db.Close()
		k.db = nil
	}
	if k.sealed != nil {
		k.sealed.rw.Lock()
		k.sealed.closeLocked()
		k.sealed.rw.Unlock()
	}
}
