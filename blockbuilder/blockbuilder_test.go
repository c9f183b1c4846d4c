package blockbuilder

import (
	"math/big"
	"os"
	"testing"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/gascounter"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/metric"
	"tokamak-zkrollup/operation"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/prometheus/client_golang/prometheus/testutil"
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

func newTestBlockBuilder(t *testing.T, cfg Config) (*BlockBuilder, string) {
	dir, err := os.MkdirTemp("", "tmpdb")
	require.NoError(t, err)
	deleteme = append(deleteme, dir)
	bb, err := NewBlockBuilder(dir, 0, cfg)
	require.NoError(t, err)
	return bb, dir
}

func testAddr(i int64) ethCommon.Address {
	return ethCommon.BigToAddress(big.NewInt(1000 + i))
}

func depositTo(addr ethCommon.Address, amount int64) *common.Deposit {
	return &common.Deposit{From: addr, Token: 0, Amount: big.NewInt(amount), To: addr}
}

func genBJJKey(t *testing.T, seed byte) (*babyjub.PrivateKey, common.PubKeyHash) {
	var sk babyjub.PrivateKey
	for i := range sk {
		sk[i] = seed + byte(i)
	}
	pkHash, err := common.PubKeyHashFromBabyJub(sk.Public())
	require.NoError(t, err)
	return &sk, pkHash
}

func TestBlockBuilder(t *testing.T) {
	bb, _ := newTestBlockBuilder(t, Config{FeeAccountID: 0})
	defer bb.StateDB().Close()
	sealed := testutil.ToFloat64(metric.SealedBlocks)

	_, err := bb.ApplyPriorityOp(depositTo(testAddr(0), 0))
	require.NoError(t, err)
	_, err = bb.ApplyPriorityOp(depositTo(testAddr(1), 100))
	require.NoError(t, err)

	sk, pkHash := genBJJKey(t, 1)
	account, err := bb.StateDB().GetAccount(1)
	require.NoError(t, err)
	account.PubKeyHash = pkHash
	require.NoError(t, bb.StateDB().InsertAccount(1, account))

	tx := &common.Transfer{AccountID: 1, From: testAddr(1), To: testAddr(0), Token: 0,
		Amount: big.NewInt(30), Fee: big.NewInt(2), TimeRange: common.DefaultTimeRange}
	require.NoError(t, tx.Sign(sk))
	_, err = bb.ApplyTx(tx)
	require.NoError(t, err)

	// rejected txs are not part of the block
	_, err = bb.ApplyTx(tx)
	require.Error(t, err)
	assert.False(t, common.Is(err, ErrBlockFull))
	assert.Equal(t, 3, bb.PendingOps())

	block, err := bb.Seal()
	require.NoError(t, err)
	var _ gascounter.Block = block
	assert.Equal(t, common.BlockNumber(1), block.Number)
	require.Len(t, block.Ops, 3)
	assert.Equal(t, operation.TypeTransfer, block.Ops[2].Type())
	assert.Equal(t, 6+6+2, block.Chunks)
	assert.Equal(t, uint64(70_525), block.CommitGasLimit())
	assert.Equal(t, uint64(13_130), block.VerifyGasLimit())
	assert.Equal(t, uint64(450_000+70_525),
		gascounter.CommitGasLimitAggregated([]gascounter.Block{block}))
	assert.Equal(t, uint64(450_000+13_130),
		gascounter.ExecuteGasLimitAggregated([]gascounter.Block{block}))
	require.Len(t, block.Fees, 1)
	assert.Equal(t, "2", block.Fees[0].Amount.String())
	assert.Equal(t, bb.StateDB().RootBigInt().String(), block.Root.String())

	feeUpdate := block.Updates[len(block.Updates)-1]
	assert.Equal(t, common.AccountID(0), feeUpdate.AccountID)
	assert.Equal(t, "30", feeUpdate.OldBalance.String())
	assert.Equal(t, "32", feeUpdate.NewBalance.String())
	operator, err := bb.StateDB().GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, "32", operator.GetBalance(0).String())

	pubdata, err := block.PublicData()
	require.NoError(t, err)
	assert.Equal(t, block.Chunks*common.ChunkBytes, len(pubdata))

	assert.Equal(t, 0, bb.PendingOps())
	assert.Equal(t, sealed+1, testutil.ToFloat64(metric.SealedBlocks))
	assert.Equal(t, float64(1), testutil.ToFloat64(metric.LastBlockNum))
}

func TestBlockFullByChunks(t *testing.T) {
	bb, _ := newTestBlockBuilder(t, Config{MaxBlockChunks: 8})
	defer bb.StateDB().Close()

	_, err := bb.ApplyPriorityOp(depositTo(testAddr(0), 10))
	require.NoError(t, err)
	root := bb.StateDB().RootBigInt().String()

	_, err = bb.ApplyPriorityOp(depositTo(testAddr(1), 10))
	assert.True(t, common.Is(err, ErrBlockFull))
	_, _, err = bb.StateDB().GetAccountByAddress(testAddr(1))
	assert.True(t, common.Is(err, common.ErrAccountNotFound))
	assert.Equal(t, common.AccountID(1), bb.StateDB().NextFreeAccountID())

	_, err = bb.ApplyPriorityOp(depositTo(testAddr(0), 5))
	assert.True(t, common.Is(err, ErrBlockFull))
	account, err := bb.StateDB().GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, "10", account.GetBalance(0).String())
	assert.Equal(t, root, bb.StateDB().RootBigInt().String())

	block, err := bb.Seal()
	require.NoError(t, err)
	assert.Len(t, block.Ops, 1)

	res, err := bb.ApplyPriorityOp(depositTo(testAddr(1), 10))
	require.NoError(t, err)
	op, ok := res.ExecutedOp.(*operation.DepositOp)
	require.True(t, ok)
	assert.Equal(t, common.AccountID(1), op.AccountID)

	// the deferred deposit lands in the next block
	block, err = bb.Seal()
	require.NoError(t, err)
	assert.Equal(t, common.BlockNumber(2), block.Number)
	require.Len(t, block.Ops, 1)
	id, account, err := bb.StateDB().GetAccountByAddress(testAddr(1))
	require.NoError(t, err)
	assert.Equal(t, common.AccountID(1), id)
	assert.Equal(t, "10", account.GetBalance(0).String())
	assert.Equal(t, common.AccountID(2), bb.StateDB().NextFreeAccountID())
}

func TestDeferredTransferToNew(t *testing.T) {
	bb, _ := newTestBlockBuilder(t, Config{MaxBlockChunks: 8})
	defer bb.StateDB().Close()

	_, err := bb.ApplyPriorityOp(depositTo(testAddr(0), 100))
	require.NoError(t, err)
	sk, pkHash := genBJJKey(t, 3)
	account, err := bb.StateDB().GetAccount(0)
	require.NoError(t, err)
	account.PubKeyHash = pkHash
	require.NoError(t, bb.StateDB().InsertAccount(0, account))
	root := bb.StateDB().RootBigInt().String()

	tx := &common.Transfer{AccountID: 0, From: testAddr(0), To: testAddr(5), Token: 0,
		Amount: big.NewInt(30), Fee: big.NewInt(1), TimeRange: common.DefaultTimeRange}
	require.NoError(t, tx.Sign(sk))
	_, err = bb.ApplyTx(tx)
	assert.True(t, common.Is(err, ErrBlockFull))
	assert.Equal(t, root, bb.StateDB().RootBigInt().String())
	assert.Equal(t, common.AccountID(1), bb.StateDB().NextFreeAccountID())
	_, _, err = bb.StateDB().GetAccountByAddress(testAddr(5))
	assert.True(t, common.Is(err, common.ErrAccountNotFound))
	account, err = bb.StateDB().GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, common.Nonce(0), account.Nonce)
	assert.Equal(t, "100", account.GetBalance(0).String())

	_, err = bb.Seal()
	require.NoError(t, err)
	res, err := bb.ApplyTx(tx)
	require.NoError(t, err)
	op, ok := res.ExecutedOp.(*operation.TransferToNewOp)
	require.True(t, ok)
	assert.Equal(t, common.AccountID(1), op.To)

	block, err := bb.Seal()
	require.NoError(t, err)
	assert.Equal(t, common.BlockNumber(2), block.Number)
	require.Len(t, block.Ops, 1)
	id, recipient, err := bb.StateDB().GetAccountByAddress(testAddr(5))
	require.NoError(t, err)
	assert.Equal(t, common.AccountID(1), id)
	assert.Equal(t, "30", recipient.GetBalance(0).String())
	// account 0 is also the fee account
	account, err = bb.StateDB().GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, common.Nonce(1), account.Nonce)
	assert.Equal(t, "70", account.GetBalance(0).String())
}

func TestBlockFullByGas(t *testing.T) {
	bb, _ := newTestBlockBuilder(t, Config{TxGasLimit: 60_000})
	defer bb.StateDB().Close()

	_, err := bb.ApplyPriorityOp(depositTo(testAddr(0), 10))
	assert.True(t, common.Is(err, ErrBlockFull))
	assert.Equal(t, common.AccountID(0), bb.StateDB().NextFreeAccountID())
	assert.Equal(t, "0", bb.StateDB().RootBigInt().String())

	block, err := bb.Seal()
	require.NoError(t, err)
	assert.Len(t, block.Ops, 0)
	assert.Len(t, block.Fees, 0)
	assert.Equal(t, common.BlockNumber(1), block.Number)
}

func TestSealWithoutFeeAccount(t *testing.T) {
	bb, _ := newTestBlockBuilder(t, Config{FeeAccountID: 5})
	defer bb.StateDB().Close()

	_, err := bb.ApplyPriorityOp(depositTo(testAddr(0), 100))
	require.NoError(t, err)
	sk, pkHash := genBJJKey(t, 1)
	account, err := bb.StateDB().GetAccount(0)
	require.NoError(t, err)
	account.PubKeyHash = pkHash
	require.NoError(t, bb.StateDB().InsertAccount(0, account))
	tx := &common.Withdraw{AccountID: 0, From: testAddr(0), To: testAddr(0), Token: 0,
		Amount: big.NewInt(10), Fee: big.NewInt(1), TimeRange: common.DefaultTimeRange}
	require.NoError(t, tx.Sign(sk))
	_, err = bb.ApplyTx(tx)
	require.NoError(t, err)

	_, err = bb.Seal()
	assert.True(t, common.Is(err, common.ErrAccountNotFound))
}

func TestResetAndReopen(t *testing.T) {
	cfg := Config{}
	bb, dir := newTestBlockBuilder(t, cfg)

	_, err := bb.ApplyPriorityOp(depositTo(testAddr(0), 10))
	require.NoError(t, err)
	block, err := bb.Seal()
	require.NoError(t, err)

	_, err = bb.ApplyPriorityOp(depositTo(testAddr(1), 10))
	require.NoError(t, err)
	require.NoError(t, bb.Reset(block.Number))
	assert.Equal(t, 0, bb.PendingOps())
	assert.Equal(t, block.Root.String(), bb.StateDB().RootBigInt().String())
	_, _, err = bb.StateDB().GetAccountByAddress(testAddr(1))
	assert.True(t, common.Is(err, common.ErrAccountNotFound))
	bb.StateDB().Close()

	bb, err = NewBlockBuilder(dir, block.Number, cfg)
	require.NoError(t, err)
	defer bb.StateDB().Close()
	assert.Equal(t, block.Number, bb.StateDB().CurrentBlock())
	assert.Equal(t, block.Root.String(), bb.StateDB().RootBigInt().String())
}
