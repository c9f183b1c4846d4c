package statedb

import (
	"encoding/binary"
	"fmt"
	"tokamak-zkrollup/common"

	"github.com/iden3/go-merkletree/db"
)

// KeySyncPosition is the key of the L1 position of the state
var KeySyncPosition = []byte("k:syncposition")

// SyncPosition is the L1 position reached by the priority operations applied
// to the state
type SyncPosition struct {
	// NextSerialID is the serial id of the next priority operation to apply
	NextSerialID common.SerialID
	// EthBlock is the L1 block of the last applied priority operation
	EthBlock uint64
}

// SetSyncPosition stores pos in the current state.  It becomes part of the
// next checkpoint.
func (s *StateDB) SetSyncPosition(pos SyncPosition) error {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], uint64(pos.NextSerialID))
	binary.BigEndian.PutUint64(b[8:], pos.EthBlock)
	batch := s.db.NewBatch()
	if err := batch.Set(KeySyncPosition, b[:]); err != nil {
		batch.Discard()
		return common.Wrap(err)
	}
	return common.Wrap(s.db.Commit(batch))
}

// GetSyncPosition returns the stored L1 position, or nil if no priority
// operation was ever applied
func (s *StateDB) GetSyncPosition() (*SyncPosition, error) {
	b, err := s.db.DB().Get(KeySyncPosition)
	if common.Unwrap(err) == db.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, common.Wrap(err)
	}
	if len(b) != 16 {
		return nil, common.Wrap(fmt.Errorf("invalid sync position length %d", len(b)))
	}
	return &SyncPosition{
		NextSerialID: common.SerialID(binary.BigEndian.Uint64(b[:8])),
		EthBlock:     binary.BigEndian.Uint64(b[8:]),
	}, nil
}
