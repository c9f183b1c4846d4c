package eth

import (
	"context"
	"math/big"
	"testing"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/log"

	"github.com/ethereum/go-ethereum"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Init("debug", []string{"stdout"})
}

var rollupAddr = ethCommon.HexToAddress("0x00000000000000000000000000000000000000aa")

type fakeBackend struct {
	logs    []types.Log
	head    uint64
	queries []ethereum.FilterQuery
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.queries = append(b.queries, q)
	var logs []types.Log
	for _, l := range b.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (b *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery,
	ch chan<- types.Log) (ethereum.Subscription, error) {
	panic("not used")
}

func (b *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.head, nil
}

func newPriorityRequestLog(t *testing.T, blockNum uint64, sender ethCommon.Address,
	serialID uint64, opType uint8, pubData []byte) types.Log {
	return newPriorityRequestLogExpiring(t, blockNum, sender, serialID, opType, pubData,
		new(big.Int).SetUint64(blockNum+100))
}

func newPriorityRequestLogExpiring(t *testing.T, blockNum uint64, sender ethCommon.Address,
	serialID uint64, opType uint8, pubData []byte, expiration *big.Int) types.Log {
	data, err := zkSyncABI.Events[eventNewPriorityRequest].Inputs.Pack(sender, serialID, opType,
		pubData, expiration)
	require.NoError(t, err)
	return types.Log{
		Address:     rollupAddr,
		Topics:      []ethCommon.Hash{logNewPriorityRequest},
		Data:        data,
		BlockNumber: blockNum,
		TxHash:      ethCommon.BigToHash(big.NewInt(int64(serialID + 1))),
	}
}

func depositLog(t *testing.T, blockNum, serialID uint64, amount int64) (types.Log, *common.Deposit) {
	sender := ethCommon.HexToAddress("0x0000000000000000000000000000000000000001")
	deposit := &common.Deposit{From: sender, Token: 3, Amount: big.NewInt(amount),
		To: ethCommon.HexToAddress("0x0000000000000000000000000000000000000002")}
	pubData, err := deposit.PubdataForPriorityQueueCancel()
	require.NoError(t, err)
	return newPriorityRequestLog(t, blockNum, sender, serialID, common.PriorityOpTypeDeposit,
		pubData), deposit
}

func fullExitPubData(id common.AccountID, addr ethCommon.Address, token common.TokenID) []byte {
	b := []byte{common.PriorityOpTypeFullExit}
	idBytes := id.Bytes()
	b = append(b, idBytes[:]...)
	b = append(b, addr.Bytes()...)
	tokenBytes := token.Bytes()
	b = append(b, tokenBytes[:]...)
	return append(b, make([]byte, common.BalanceBytesLen)...)
}

func TestPriorityOpFromLog(t *testing.T) {
	vLog, deposit := depositLog(t, 10, 7, 1000)
	op, err := PriorityOpFromLog(vLog)
	require.NoError(t, err)
	assert.Equal(t, common.SerialID(7), op.SerialID)
	assert.Equal(t, uint64(110), op.DeadlineBlock)
	assert.Equal(t, uint64(10), op.EthBlock)
	assert.Equal(t, vLog.TxHash, op.EthHash)
	d, ok := op.Data.(*common.Deposit)
	require.True(t, ok)
	assert.Equal(t, deposit.From, d.From)
	assert.Equal(t, deposit.To, d.To)
	assert.Equal(t, deposit.Token, d.Token)
	assert.Equal(t, "1000", d.Amount.String())

	addr := ethCommon.HexToAddress("0x0000000000000000000000000000000000000003")
	vLog = newPriorityRequestLog(t, 11, addr, 8, common.PriorityOpTypeFullExit,
		fullExitPubData(5, addr, 2))
	op, err = PriorityOpFromLog(vLog)
	require.NoError(t, err)
	fe, ok := op.Data.(*common.FullExit)
	require.True(t, ok)
	assert.Equal(t, common.FullExit{AccountID: 5, EthAddress: addr, Token: 2}, *fe)

	// pubdata shorter than the op type needs
	vLog = newPriorityRequestLog(t, 11, addr, 9, common.PriorityOpTypeFullExit,
		fullExitPubData(5, addr, 2)[:30])
	_, err = PriorityOpFromLog(vLog)
	assert.Error(t, err)

	vLog = newPriorityRequestLog(t, 11, addr, 9, 0x03, []byte{0x03})
	_, err = PriorityOpFromLog(vLog)
	assert.True(t, common.Is(err, common.ErrUnsupportedPriorityOp))

	vLog.Topics = []ethCommon.Hash{{}}
	_, err = PriorityOpFromLog(vLog)
	assert.True(t, common.Is(err, ErrUnknownEvent))
}

func TestPriorityOpFromLogExpirationOverflow(t *testing.T) {
	_, deposit := depositLog(t, 10, 7, 1000)
	pubData, err := deposit.PubdataForPriorityQueueCancel()
	require.NoError(t, err)
	maxUint64 := new(big.Int).SetUint64(^uint64(0))

	vLog := newPriorityRequestLogExpiring(t, 10, deposit.From, 7, common.PriorityOpTypeDeposit,
		pubData, maxUint64)
	op, err := PriorityOpFromLog(vLog)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), op.DeadlineBlock)

	// 2^64 used to be truncated to 0
	vLog = newPriorityRequestLogExpiring(t, 10, deposit.From, 7, common.PriorityOpTypeDeposit,
		pubData, new(big.Int).Add(maxUint64, big.NewInt(1)))
	_, err = PriorityOpFromLog(vLog)
	assert.True(t, common.Is(err, ErrInvalidExpirationBlock))
}

func TestClientConfirmedPriorityOps(t *testing.T) {
	backend := &fakeBackend{head: 12}
	for i := uint64(0); i < 4; i++ {
		vLog, _ := depositLog(t, 5+i*3, i, int64(100*(i+1)))
		backend.logs = append(backend.logs, vLog)
	}
	removed, _ := depositLog(t, 6, 99, 1)
	removed.Removed = true
	backend.logs = append(backend.logs, removed)

	client := NewClient(backend, &ClientConfig{RollupAddress: rollupAddr, Confirmations: 3})
	confirmed, ok, err := client.EthConfirmedBlock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(9), confirmed)

	// logs at blocks 5 and 8 are confirmed
	ops, next, err := client.ConfirmedPriorityOps(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, common.SerialID(0), ops[0].SerialID)
	assert.Equal(t, common.SerialID(1), ops[1].SerialID)
	assert.Equal(t, uint64(10), next)
	require.Len(t, backend.queries, 1)
	assert.Equal(t, []ethCommon.Address{rollupAddr}, backend.queries[0].Addresses)

	// nothing new until the chain grows
	ops, next, err = client.ConfirmedPriorityOps(context.Background(), next)
	require.NoError(t, err)
	assert.Len(t, ops, 0)
	assert.Equal(t, uint64(10), next)

	backend.head = 20
	ops, next, err = client.ConfirmedPriorityOps(context.Background(), next)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, common.SerialID(3), ops[1].SerialID)
	assert.Equal(t, uint64(18), next)

	client = NewClient(&fakeBackend{head: 2}, &ClientConfig{Confirmations: 3})
	_, ok, err = client.EthConfirmedBlock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
