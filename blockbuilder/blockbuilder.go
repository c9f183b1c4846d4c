package blockbuilder

import (
	"errors"
	"fmt"
	"math/big"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/database/kvdb"
	"tokamak-zkrollup/database/statedb"
	"tokamak-zkrollup/gascounter"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/metric"
	"tokamak-zkrollup/operation"
	"tokamak-zkrollup/txprocessor"
)

// ErrBlockFull is returned when an operation does not fit in the block being
// built.  The operation is rolled back and has to be applied again after
// Seal.
var ErrBlockFull = errors.New("block is full")

// Config contains the block configuration
type Config struct {
	// MaxBlockChunks is the pubdata capacity of a block in chunks.  If 0,
	// only the gas limit bounds the block.
	MaxBlockChunks int
	// FeeAccountID is the account credited with the fees of the block
	FeeAccountID common.AccountID
	// TxGasLimit is the gas limit of the commit and verify L1 transactions
	// of a block.  If 0, gascounter.TxGasLimit is used.
	TxGasLimit uint64
	// Keep is the number of checkpoints kept by the StateDB.  If 0,
	// kvdb.DefaultKeep is used.
	Keep              int
	TxProcessorConfig txprocessor.Config
}

// Block is a sealed block
type Block struct {
	Number    common.BlockNumber
	Timestamp uint64
	Ops       []operation.Op
	Updates   []common.AccountUpdate
	Fees      []common.CollectedFee
	Chunks    int
	// Root is the account tree root after the block
	Root      *big.Int
	commitGas uint64
	verifyGas uint64
}

var _ gascounter.Block = (*Block)(nil)

// CommitGasLimit returns the estimated gas to commit the block
func (b *Block) CommitGasLimit() uint64 {
	return b.commitGas
}

// VerifyGasLimit returns the estimated gas to verify the block
func (b *Block) VerifyGasLimit() uint64 {
	return b.verifyGas
}

// PublicData returns the concatenated pubdata of the operations of the block
func (b *Block) PublicData() ([]byte, error) {
	pubdata := make([]byte, 0, b.Chunks*common.ChunkBytes)
	for _, op := range b.Ops {
		d, err := op.PublicData()
		if err != nil {
			return nil, common.Wrap(err)
		}
		pubdata = append(pubdata, d...)
	}
	return pubdata, nil
}

// BlockBuilder applies txs and priority operations on its own StateDB,
// accumulating them into a block until Seal
type BlockBuilder struct {
	cfg       Config
	stateDB   *statedb.StateDB
	txp       *txprocessor.TxProcessor
	gas       *gascounter.GasCounter
	timestamp uint64
	ops       []operation.Op
	updates   []common.AccountUpdate
	fees      common.FeeAccumulator
	chunks    int
}

// NewBlockBuilder constructs a new BlockBuilder on a StateDB stored at dbpath,
// and executes the bb.Reset method
func NewBlockBuilder(dbpath string, blockNum common.BlockNumber, cfg Config) (*BlockBuilder,
	error) {
	keep := cfg.Keep
	if keep == 0 {
		keep = kvdb.DefaultKeep
	}
	sdb, err := statedb.NewStateDB(
		statedb.Config{
			Path: dbpath,
			Keep: keep,
			Type: statedb.TypeBlockBuilder,
		})
	if err != nil {
		return nil, common.Wrap(err)
	}
	gasLimit := cfg.TxGasLimit
	if gasLimit == 0 {
		gasLimit = gascounter.TxGasLimit
	}
	bb := BlockBuilder{
		cfg:     cfg,
		stateDB: sdb,
		txp:     txprocessor.NewTxProcessor(sdb, cfg.TxProcessorConfig),
		gas:     gascounter.NewGasCounterWithLimit(gasLimit),
		fees:    make(common.FeeAccumulator),
	}
	if blockNum != sdb.CurrentBlock() {
		if err := bb.Reset(blockNum); err != nil {
			sdb.Close()
			return nil, common.Wrap(err)
		}
	}
	return &bb, nil
}

// Reset discards the block being built and resets the StateDB to the
// checkpoint of blockNum
func (bb *BlockBuilder) Reset(blockNum common.BlockNumber) error {
	if err := bb.stateDB.Reset(blockNum); err != nil {
		return common.Wrap(err)
	}
	bb.clear()
	return nil
}

func (bb *BlockBuilder) clear() {
	bb.gas.Reset()
	bb.ops = nil
	bb.updates = nil
	bb.fees = make(common.FeeAccumulator)
	bb.chunks = 0
}

// StateDB returns the underlying StateDB
func (bb *BlockBuilder) StateDB() *statedb.StateDB {
	return bb.stateDB
}

// TxProcessor returns the TxProcessor of the BlockBuilder
func (bb *BlockBuilder) TxProcessor() *txprocessor.TxProcessor {
	return bb.txp
}

// SetTimestamp sets the timestamp of the block being built, used to check
// the time range of its txs
func (bb *BlockBuilder) SetTimestamp(ts uint64) {
	bb.timestamp = ts
	bb.txp.SetBlockTimestamp(ts)
}

// PendingOps returns the number of operations of the block being built
func (bb *BlockBuilder) PendingOps() int {
	return len(bb.ops)
}

// ApplyTx executes tx and adds it to the block
func (bb *BlockBuilder) ApplyTx(tx common.L2Tx) (*txprocessor.OpSuccess, error) {
	nextID := bb.stateDB.NextFreeAccountID()
	res, err := bb.txp.ExecuteTx(tx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if err := bb.admit(res, nextID); err != nil {
		return nil, common.Wrap(err)
	}
	return res, nil
}

// ApplyPriorityOp executes a priority operation and adds it to the block
func (bb *BlockBuilder) ApplyPriorityOp(op common.PriorityOpData) (*txprocessor.OpSuccess, error) {
	nextID := bb.stateDB.NextFreeAccountID()
	res, err := bb.txp.ExecutePriorityOp(op)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if err := bb.admit(res, nextID); err != nil {
		return nil, common.Wrap(err)
	}
	return res, nil
}

// admit adds an executed operation to the block when it fits in the chunk
// capacity and in the gas limit.  Otherwise its updates are reverted and
// ErrBlockFull is returned.
func (bb *BlockBuilder) admit(res *txprocessor.OpSuccess, nextID common.AccountID) error {
	op := res.ExecutedOp
	chunks := op.Chunks()
	if bb.cfg.MaxBlockChunks > 0 && bb.chunks+chunks > bb.cfg.MaxBlockChunks {
		return bb.rollback(res, nextID, fmt.Errorf("%w: %d chunks used, %s needs %d",
			ErrBlockFull, bb.chunks, op.Type(), chunks))
	}
	if !bb.gas.AddOp(op) {
		return bb.rollback(res, nextID, fmt.Errorf("%w: gas limit reached by %s",
			ErrBlockFull, op.Type()))
	}
	bb.ops = append(bb.ops, op)
	bb.updates = append(bb.updates, res.Updates...)
	bb.fees.Add(res.Fee)
	bb.chunks += chunks
	return nil
}

func (bb *BlockBuilder) rollback(res *txprocessor.OpSuccess, nextID common.AccountID,
	cause error) error {
	if err := bb.txp.ApplyAccountUpdates(common.ReversedUpdates(res.Updates)); err != nil {
		return common.Wrap(err)
	}
	if err := bb.stateDB.SetNextFreeAccountID(nextID); err != nil {
		return common.Wrap(err)
	}
	log.Debugw("blockbuilder: operation rolled back", "op", res.ExecutedOp.Type(),
		"err", cause)
	return common.Wrap(cause)
}

// Seal credits the collected fees to the fee account, checkpoints the
// StateDB and returns the block.  The BlockBuilder is left ready for the next
// block.
func (bb *BlockBuilder) Seal() (*Block, error) {
	feeUpdates, err := bb.collectFees()
	if err != nil {
		return nil, common.Wrap(err)
	}
	if err := bb.stateDB.MakeCheckpoint(); err != nil {
		return nil, common.Wrap(err)
	}
	block := &Block{
		Number:    bb.stateDB.CurrentBlock(),
		Timestamp: bb.timestamp,
		Ops:       bb.ops,
		Updates:   append(bb.updates, feeUpdates...),
		Fees:      bb.fees.Fees(),
		Chunks:    bb.chunks,
		Root:      bb.stateDB.RootBigInt(),
		commitGas: bb.gas.CommitGasLimit(),
		verifyGas: bb.gas.VerifyGasLimit(),
	}
	bb.clear()

	metric.SealedBlocks.Inc()
	metric.LastBlockNum.Set(float64(block.Number))
	metric.BlockCommitGas.Set(float64(block.commitGas))
	metric.BlockVerifyGas.Set(float64(block.verifyGas))
	log.Infow("blockbuilder: block sealed", "block", block.Number, "ops", len(block.Ops),
		"chunks", block.Chunks, "commitGas", block.commitGas, "verifyGas", block.verifyGas,
		"root", block.Root.String())
	return block, nil
}

// collectFees credits the accumulated fees to the fee account
func (bb *BlockBuilder) collectFees() ([]common.AccountUpdate, error) {
	fees := bb.fees.Fees()
	if len(fees) == 0 {
		return nil, nil
	}
	account, err := bb.stateDB.GetAccount(bb.cfg.FeeAccountID)
	if err != nil {
		return nil, common.Wrap(fmt.Errorf("fee account: %w", common.Unwrap(err)))
	}
	updates := make([]common.AccountUpdate, 0, len(fees))
	for _, fee := range fees {
		oldBalance := account.GetBalance(fee.Token)
		account.AddBalance(fee.Token, fee.Amount)
		updates = append(updates, common.NewBalanceUpdate(bb.cfg.FeeAccountID, fee.Token,
			oldBalance, account.GetBalance(fee.Token), account.Nonce, account.Nonce))
	}
	if err := bb.txp.ApplyAccountUpdates(updates); err != nil {
		return nil, common.Wrap(err)
	}
	return updates, nil
}
