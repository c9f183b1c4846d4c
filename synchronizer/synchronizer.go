package synchronizer

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"sync"
	"time"
	"tokamak-zkrollup/blockbuilder"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/database/statedb"
	"tokamak-zkrollup/log"

	"github.com/mitchellh/copystructure"
)

func init() {
	copystructure.Copiers[reflect.TypeOf(big.Int{})] =
		func(raw interface{}) (interface{}, error) {
			in := raw.(big.Int)
			out := new(big.Int).Set(&in)
			return *out, nil
		}
}

var (
	// ErrSerialIDGap is returned when the L1 source skips a priority
	// operation serial id
	ErrSerialIDGap = fmt.Errorf("priority operation serial id gap")
	// ErrOpTooBig is returned when a priority operation does not fit even
	// in an empty block
	ErrOpTooBig = fmt.Errorf("priority operation does not fit in an empty block")
)

// PriorityOpSource returns the confirmed priority operations requested on L1
// from an L1 block on, and the next L1 block to read from
type PriorityOpSource interface {
	ConfirmedPriorityOps(ctx context.Context, from uint64) ([]common.PriorityOp, uint64, error)
}

// Stats of the synchronizer
type Stats struct {
	Eth struct {
		FirstBlockNum uint64
		// NextBlockNum is the next L1 block to read priority
		// operations from
		NextBlockNum uint64
	}
	Sync struct {
		Updated      time.Time
		NextSerialID common.SerialID
		LastBlock    common.BlockNumber
		LastRoot     *big.Int
		AppliedOps   uint64
		SkippedOps   uint64
	}
}

// StatsHolder stores stats and that allows reading and writing them
// concurrently
type StatsHolder struct {
	Stats
	rw sync.RWMutex
}

// NewStatsHolder creates a new StatsHolder
func NewStatsHolder(firstBlockNum uint64, firstSerialID common.SerialID) *StatsHolder {
	stats := Stats{}
	stats.Eth.FirstBlockNum = firstBlockNum
	stats.Eth.NextBlockNum = firstBlockNum
	stats.Sync.NextSerialID = firstSerialID
	return &StatsHolder{Stats: stats}
}

// UpdateSync updates the synchronizer stats
func (s *StatsHolder) UpdateSync(nextBlockNum uint64, nextSerialID common.SerialID,
	lastBlock *blockbuilder.Block, applied, skipped uint64) {
	now := time.Now()
	s.rw.Lock()
	s.Eth.NextBlockNum = nextBlockNum
	s.Sync.NextSerialID = nextSerialID
	if lastBlock != nil {
		s.Sync.LastBlock = lastBlock.Number
		s.Sync.LastRoot = lastBlock.Root
	}
	s.Sync.AppliedOps += applied
	s.Sync.SkippedOps += skipped
	s.Sync.Updated = now
	s.rw.Unlock()
}

// CopyStats returns a deep copy of the inner Stats
func (s *StatsHolder) CopyStats() *Stats {
	s.rw.RLock()
	defer s.rw.RUnlock()
	sCopyRaw, err := copystructure.Copy(&s.Stats)
	if err != nil {
		panic(err)
	}
	return sCopyRaw.(*Stats)
}

// Config is the Synchronizer configuration
type Config struct {
	// StartBlock is the first L1 block scanned for priority operations
	StartBlock uint64
	// StartSerialID is the serial id of the first priority operation to
	// apply
	StartSerialID common.SerialID
}

// Synchronizer reads the priority operations confirmed on L1 and applies
// them in serial id order through the BlockBuilder, sealing a block when it
// gets full and at the end of every Sync
type Synchronizer struct {
	source       PriorityOpSource
	bb           *blockbuilder.BlockBuilder
	cfg          Config
	nextBlockNum uint64
	nextSerialID common.SerialID
	// lastEthBlock is the L1 block of the last applied priority operation
	lastEthBlock uint64
	stats        *StatsHolder
}

// NewSynchronizer creates a new Synchronizer.  When the StateDB of bb holds a
// sync position, it takes precedence over the start position of cfg.
func NewSynchronizer(source PriorityOpSource, bb *blockbuilder.BlockBuilder,
	cfg Config) (*Synchronizer, error) {
	nextBlockNum, nextSerialID := cfg.StartBlock, cfg.StartSerialID
	pos, err := bb.StateDB().GetSyncPosition()
	if err != nil {
		return nil, common.Wrap(err)
	}
	if pos != nil {
		nextBlockNum, nextSerialID = pos.EthBlock, pos.NextSerialID
		log.Infow("synchronizer: resuming", "ethBlock", pos.EthBlock,
			"nextSerialId", pos.NextSerialID)
	}
	return &Synchronizer{
		source:       source,
		bb:           bb,
		cfg:          cfg,
		nextBlockNum: nextBlockNum,
		nextSerialID: nextSerialID,
		lastEthBlock: nextBlockNum,
		stats:        NewStatsHolder(nextBlockNum, nextSerialID),
	}, nil
}

// BlockBuilder returns the inner BlockBuilder
func (s *Synchronizer) BlockBuilder() *blockbuilder.BlockBuilder {
	return s.bb
}

// Stats returns a copy of the Synchronizer Stats.  It is safe to call Stats()
// during a Sync call
func (s *Synchronizer) Stats() *Stats {
	return s.stats.CopyStats()
}

// Sync applies the priority operations confirmed since the last call and
// returns the blocks sealed with them.  On error the blocks sealed before the
// failure are returned, and the next call resumes after the last applied
// operation.
func (s *Synchronizer) Sync(ctx context.Context) ([]*blockbuilder.Block, error) {
	ops, nextBlockNum, err := s.source.ConfirmedPriorityOps(ctx, s.nextBlockNum)
	if err != nil {
		return nil, common.Wrap(fmt.Errorf("ConfirmedPriorityOps: %w", common.Unwrap(err)))
	}
	s.bb.SetTimestamp(uint64(time.Now().Unix()))

	var blocks []*blockbuilder.Block
	var applied, skipped uint64
	updateStats := func(nextBlockNum uint64) {
		var last *blockbuilder.Block
		if len(blocks) > 0 {
			last = blocks[len(blocks)-1]
		}
		s.stats.UpdateSync(nextBlockNum, s.nextSerialID, last, applied, skipped)
	}

	for i := range ops {
		op := &ops[i]
		if op.SerialID < s.nextSerialID {
			log.Debugw("synchronizer: priority op already applied", "serialId", op.SerialID)
			continue
		}
		if op.SerialID > s.nextSerialID {
			updateStats(s.nextBlockNum)
			return blocks, common.Wrap(fmt.Errorf("%w: expected %d, got %d at L1 block %d",
				ErrSerialIDGap, s.nextSerialID, op.SerialID, op.EthBlock))
		}
		if err := ctx.Err(); err != nil {
			updateStats(s.nextBlockNum)
			return blocks, common.Wrap(err)
		}
		sealed, ok, err := s.applyPriorityOp(op)
		if sealed != nil {
			blocks = append(blocks, sealed)
		}
		if err != nil {
			updateStats(s.nextBlockNum)
			return blocks, common.Wrap(err)
		}
		if ok {
			applied++
		} else {
			skipped++
		}
		s.nextSerialID++
		s.lastEthBlock = op.EthBlock
	}

	if s.bb.PendingOps() > 0 {
		block, err := s.seal()
		if err != nil {
			updateStats(s.nextBlockNum)
			return blocks, common.Wrap(err)
		}
		blocks = append(blocks, block)
	}
	s.nextBlockNum = nextBlockNum
	updateStats(nextBlockNum)
	if len(ops) > 0 {
		log.Infow("synchronizer: priority ops synced", "ops", len(ops), "applied", applied,
			"skipped", skipped, "blocks", len(blocks), "nextBlock", nextBlockNum,
			"nextSerialId", s.nextSerialID)
	}
	return blocks, nil
}

// seal stores the sync position of the applied operations and seals the
// block, so that both are part of the same checkpoint
func (s *Synchronizer) seal() (*blockbuilder.Block, error) {
	if err := s.bb.StateDB().SetSyncPosition(statedb.SyncPosition{
		NextSerialID: s.nextSerialID,
		EthBlock:     s.lastEthBlock,
	}); err != nil {
		return nil, common.Wrap(err)
	}
	return s.bb.Seal()
}

// applyPriorityOp adds op to the block being built, sealing it first when it
// is full.  An op rejected by the state transition is skipped and reported
// with ok false.  A deferred op that fails after the seal is returned as an
// error.
func (s *Synchronizer) applyPriorityOp(op *common.PriorityOp) (sealed *blockbuilder.Block,
	ok bool, err error) {
	_, err = s.bb.ApplyPriorityOp(op.Data)
	if common.Is(err, blockbuilder.ErrBlockFull) {
		if s.bb.PendingOps() == 0 {
			return nil, false, common.Wrap(fmt.Errorf("%w: serial id %d", ErrOpTooBig, op.SerialID))
		}
		sealed, err = s.seal()
		if err != nil {
			return nil, false, common.Wrap(err)
		}
		_, err = s.bb.ApplyPriorityOp(op.Data)
		if common.Is(err, blockbuilder.ErrBlockFull) {
			return sealed, false, common.Wrap(fmt.Errorf("%w: serial id %d", ErrOpTooBig,
				op.SerialID))
		}
		if err != nil {
			// op was valid before the seal, so this is not a rejection and
			// it is retried by the next Sync
			return sealed, false, common.Wrap(fmt.Errorf("serial id %d after seal: %w",
				op.SerialID, common.Unwrap(err)))
		}
		return sealed, true, nil
	}
	if err != nil {
		log.Errorw("synchronizer: priority op rejected", "serialId", op.SerialID,
			"type", op.Data.OpType(), "ethHash", op.EthHash.Hex(), "err", err)
		return sealed, false, nil
	}
	return sealed, true, nil
}
