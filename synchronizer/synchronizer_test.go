package synchronizer

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"tokamak-zkrollup/blockbuilder"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/operation"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deleteme []string

func init() {
	log.Init("debug", []string{"stdout"})
}

func TestMain(m *testing.M) {
	exitVal := m.Run()
	for _, dir := range deleteme {
		if err := os.RemoveAll(dir); err != nil {
			panic(err)
		}
	}
	os.Exit(exitVal)
}

// fakeSource serves the ops whose L1 block is between from and head
type fakeSource struct {
	head uint64
	ops  []common.PriorityOp
	err  error
}

func (f *fakeSource) ConfirmedPriorityOps(ctx context.Context, from uint64) ([]common.PriorityOp,
	uint64, error) {
	if f.err != nil {
		return nil, from, f.err
	}
	if f.head < from {
		return nil, from, nil
	}
	var ops []common.PriorityOp
	for _, op := range f.ops {
		if op.EthBlock >= from && op.EthBlock <= f.head {
			ops = append(ops, op)
		}
	}
	return ops, f.head + 1, nil
}

func (f *fakeSource) add(serialID common.SerialID, ethBlock uint64, data common.PriorityOpData) {
	f.ops = append(f.ops, common.PriorityOp{
		SerialID: serialID,
		Data:     data,
		EthBlock: ethBlock,
		EthHash:  ethCommon.BigToHash(big.NewInt(int64(serialID))),
	})
}

func testAddr(i int64) ethCommon.Address {
	return ethCommon.BigToAddress(big.NewInt(1000 + i))
}

func depositTo(i int64, amount int64) *common.Deposit {
	return &common.Deposit{From: testAddr(i), Token: 0, Amount: big.NewInt(amount), To: testAddr(i)}
}

func newTestSynchronizer(t *testing.T, source PriorityOpSource, cfg Config) *Synchronizer {
	dir, err := os.MkdirTemp("", "tmpdb")
	require.NoError(t, err)
	deleteme = append(deleteme, dir)
	return openTestSynchronizer(t, dir, 0, source, cfg)
}

func openTestSynchronizer(t *testing.T, dir string, blockNum common.BlockNumber,
	source PriorityOpSource, cfg Config) *Synchronizer {
	// two deposits per block
	bb, err := blockbuilder.NewBlockBuilder(dir, blockNum, blockbuilder.Config{MaxBlockChunks: 12})
	require.NoError(t, err)
	s, err := NewSynchronizer(source, bb, cfg)
	require.NoError(t, err)
	return s
}

func TestSync(t *testing.T) {
	source := &fakeSource{}
	for i := int64(0); i < 5; i++ {
		source.add(common.SerialID(i), uint64(10+i), depositTo(i, 10*(i+1)))
	}
	s := newTestSynchronizer(t, source, Config{StartBlock: 10})
	defer s.BlockBuilder().StateDB().Close()

	// nothing confirmed yet
	source.head = 9
	blocks, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.Equal(t, uint64(10), s.Stats().Eth.NextBlockNum)

	source.head = 20
	blocks, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Len(t, blocks[0].Ops, 2)
	assert.Len(t, blocks[1].Ops, 2)
	assert.Len(t, blocks[2].Ops, 1)
	for i, block := range blocks {
		assert.Equal(t, common.BlockNumber(i+1), block.Number)
	}

	stats := s.Stats()
	assert.Equal(t, uint64(21), stats.Eth.NextBlockNum)
	assert.Equal(t, common.SerialID(5), stats.Sync.NextSerialID)
	assert.Equal(t, uint64(5), stats.Sync.AppliedOps)
	assert.Equal(t, uint64(0), stats.Sync.SkippedOps)
	// serial id 2 did not fit in the first block and opens the second one
	deferred, ok := blocks[1].Ops[0].(*operation.DepositOp)
	require.True(t, ok)
	assert.Equal(t, common.AccountID(2), deferred.AccountID)
	assert.Equal(t, common.BlockNumber(3), stats.Sync.LastBlock)
	assert.Equal(t, s.BlockBuilder().StateDB().RootBigInt().String(), stats.Sync.LastRoot.String())

	for i := int64(0); i < 5; i++ {
		id, account, err := s.BlockBuilder().StateDB().GetAccountByAddress(testAddr(i))
		require.NoError(t, err)
		assert.Equal(t, common.AccountID(i), id)
		assert.Equal(t, big.NewInt(10*(i+1)).String(), account.GetBalance(0).String())
	}

	// no new ops
	blocks, err = s.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.Equal(t, common.BlockNumber(3), s.Stats().Sync.LastBlock)
}

func TestSyncSkipsAppliedAndRejectedOps(t *testing.T) {
	source := &fakeSource{head: 5}
	source.add(0, 1, depositTo(0, 10))
	source.add(1, 2, &common.Deposit{From: testAddr(1), Token: common.MaxTokenID + 1,
		Amount: big.NewInt(1), To: testAddr(1)})
	// full exit of an account that does not exist is applied with no updates
	source.add(2, 3, &common.FullExit{AccountID: 7, EthAddress: testAddr(7), Token: 0})
	s := newTestSynchronizer(t, source, Config{StartBlock: 0, StartSerialID: 0})
	defer s.BlockBuilder().StateDB().Close()

	blocks, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Len(t, blocks[0].Ops, 2)
	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Sync.AppliedOps)
	assert.Equal(t, uint64(1), stats.Sync.SkippedOps)
	assert.Equal(t, common.SerialID(3), stats.Sync.NextSerialID)

	_, _, err = s.BlockBuilder().StateDB().GetAccountByAddress(testAddr(1))
	assert.True(t, common.Is(err, common.ErrAccountNotFound))

	// an already applied serial id delivered again is ignored
	source.add(2, 7, depositTo(2, 99))
	source.add(3, 8, depositTo(3, 30))
	source.head = 10
	blocks, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Len(t, blocks[0].Ops, 1)
	_, _, err = s.BlockBuilder().StateDB().GetAccountByAddress(testAddr(2))
	assert.True(t, common.Is(err, common.ErrAccountNotFound))
	assert.Equal(t, common.SerialID(4), s.Stats().Sync.NextSerialID)
}

func TestSyncSerialIDGap(t *testing.T) {
	source := &fakeSource{head: 5}
	source.add(3, 1, depositTo(0, 10))
	source.add(5, 2, depositTo(1, 10))
	s := newTestSynchronizer(t, source, Config{StartSerialID: 3})
	defer s.BlockBuilder().StateDB().Close()

	blocks, err := s.Sync(context.Background())
	assert.True(t, common.Is(err, ErrSerialIDGap))
	assert.Empty(t, blocks)
	stats := s.Stats()
	assert.Equal(t, common.SerialID(4), stats.Sync.NextSerialID)
	// the L1 position is kept so the range is read again
	assert.Equal(t, uint64(0), stats.Eth.NextBlockNum)
	assert.Equal(t, 1, s.BlockBuilder().PendingOps())
}

func TestSyncSourceError(t *testing.T) {
	errL1 := errors.New("l1 unavailable")
	source := &fakeSource{err: errL1}
	s := newTestSynchronizer(t, source, Config{})
	defer s.BlockBuilder().StateDB().Close()

	_, err := s.Sync(context.Background())
	assert.True(t, common.Is(err, errL1))
	assert.Equal(t, common.SerialID(0), s.Stats().Sync.NextSerialID)
}

func TestSyncResume(t *testing.T) {
	source := &fakeSource{head: 30}
	source.add(0, 10, depositTo(0, 10))
	source.add(1, 10, depositTo(1, 20))
	source.add(2, 12, depositTo(2, 30))
	dir, err := os.MkdirTemp("", "tmpdb")
	require.NoError(t, err)
	deleteme = append(deleteme, dir)

	s := openTestSynchronizer(t, dir, 0, source, Config{StartBlock: 5})
	blocks, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	root := s.BlockBuilder().StateDB().RootBigInt().String()
	s.BlockBuilder().StateDB().Close()

	// the stored position wins over the configured one
	source.add(3, 31, depositTo(3, 40))
	source.head = 40
	s = openTestSynchronizer(t, dir, 2, source, Config{StartBlock: 5})
	defer s.BlockBuilder().StateDB().Close()
	assert.Equal(t, root, s.BlockBuilder().StateDB().RootBigInt().String())
	stats := s.Stats()
	assert.Equal(t, uint64(12), stats.Eth.NextBlockNum)
	assert.Equal(t, common.SerialID(3), stats.Sync.NextSerialID)

	blocks, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].Ops, 1)
	assert.Equal(t, common.BlockNumber(3), blocks[0].Number)
	id, _, err := s.BlockBuilder().StateDB().GetAccountByAddress(testAddr(3))
	require.NoError(t, err)
	assert.Equal(t, common.AccountID(3), id)
}

func TestCopyStats(t *testing.T) {
	holder := NewStatsHolder(3, 1)
	root := big.NewInt(12345)
	holder.UpdateSync(9, 4, &blockbuilder.Block{Number: 2, Root: root}, 3, 1)

	stats := holder.CopyStats()
	assert.Equal(t, uint64(3), stats.Eth.FirstBlockNum)
	assert.Equal(t, uint64(9), stats.Eth.NextBlockNum)
	assert.Equal(t, common.SerialID(4), stats.Sync.NextSerialID)
	assert.Equal(t, common.BlockNumber(2), stats.Sync.LastBlock)
	assert.Equal(t, uint64(3), stats.Sync.AppliedOps)
	assert.Equal(t, uint64(1), stats.Sync.SkippedOps)
	assert.Equal(t, "12345", stats.Sync.LastRoot.String())
	assert.False(t, stats.Sync.Updated.IsZero())

	// the copy does not share the root
	stats.Sync.LastRoot.SetInt64(1)
	assert.Equal(t, "12345", holder.CopyStats().Sync.LastRoot.String())
}
