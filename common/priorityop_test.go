package common

import (
	"math/big"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepositFromQueueLogs(t *testing.T) {
	sender := ethCommon.HexToAddress("0xaaaa")
	to := ethCommon.HexToAddress("0xbbbb")
	deposit := &Deposit{From: sender, Token: 3, Amount: big.NewInt(500), To: to}
	pubData, err := deposit.PubdataForPriorityQueueCancel()
	require.NoError(t, err)
	assert.Equal(t, depositPubDataLen, len(pubData))

	data, err := ParsePriorityOpFromQueueLogs(pubData, PriorityOpTypeDeposit, sender)
	require.NoError(t, err)
	assert.Equal(t, deposit, data)

	_, err = ParsePriorityOpFromQueueLogs(pubData[:len(pubData)-1], PriorityOpTypeDeposit, sender)
	assert.True(t, Is(err, ErrPriorityOpPubData))
	_, err = ParsePriorityOpFromQueueLogs(append(pubData, 0), PriorityOpTypeDeposit, sender)
	assert.True(t, Is(err, ErrPriorityOpPubData))
}

func TestParseFullExitFromQueueLogs(t *testing.T) {
	addr := ethCommon.HexToAddress("0xcccc")
	pubData := []byte{PriorityOpTypeFullExit, 0, 0, 1, 2}
	pubData = append(pubData, addr.Bytes()...)
	pubData = append(pubData, 0, 9)
	pubData = append(pubData, make([]byte, BalanceBytesLen)...)
	require.Equal(t, fullExitPubDataLen, len(pubData))

	data, err := ParsePriorityOpFromQueueLogs(pubData, PriorityOpTypeFullExit, EmptyAddr)
	require.NoError(t, err)
	assert.Equal(t, &FullExit{AccountID: 258, EthAddress: addr, Token: 9}, data)

	_, err = ParsePriorityOpFromQueueLogs(pubData[:len(pubData)-1], PriorityOpTypeFullExit, EmptyAddr)
	assert.True(t, Is(err, ErrPriorityOpPubData))
	_, err = ParsePriorityOpFromQueueLogs(pubData[:10], PriorityOpTypeFullExit, EmptyAddr)
	assert.True(t, Is(err, ErrPriorityOpPubData))
	_, err = ParsePriorityOpFromQueueLogs(pubData, 0x02, EmptyAddr)
	assert.True(t, Is(err, ErrUnsupportedPriorityOp))
}

func TestArgsForPriorityQueueCancel(t *testing.T) {
	ops := []PriorityOp{
		{SerialID: 0, Data: &Deposit{Token: 1, Amount: big.NewInt(1)}},
		{SerialID: 1, Data: &FullExit{AccountID: 1}},
	}
	n, data, err := ArgsForPriorityQueueCancel(ops)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, depositPubDataLen, len(data[0]))
	assert.Equal(t, []byte{0, 0, 0, 0}, data[0][1:5])
	assert.Equal(t, 0, len(data[1]))
}

func TestTokenLike(t *testing.T) {
	eth := &Token{ID: 0, Symbol: NativeTokenSymbol, Decimals: 18}
	usdc := &Token{ID: 2, Address: ethCommon.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
		Symbol: "USDC", Decimals: 6}

	tl := ParseTokenLike("2")
	assert.Equal(t, TokenLikeID, tl.Kind)
	assert.True(t, tl.Matches(usdc))

	tl = ParseTokenLike("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	assert.Equal(t, TokenLikeAddress, tl.Kind)
	assert.True(t, tl.Matches(usdc))
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", tl.String())

	tl = ParseTokenLike("usdc")
	assert.Equal(t, TokenLikeSymbol, tl.Kind)
	assert.True(t, tl.Matches(usdc))
	assert.False(t, tl.Matches(eth))

	assert.True(t, ParseTokenLike("0").IsNative())
	assert.True(t, ParseTokenLike("ETH").IsNative())
	assert.True(t, ParseTokenLike("0x0000000000000000000000000000000000000000").IsNative())

	assert.Equal(t, "1.5", eth.FormatUnits(new(big.Int).Mul(big.NewInt(15), bigPow10(17))))
	assert.Equal(t, "0.000001", usdc.FormatUnits(big.NewInt(1)))
	assert.Equal(t, "3", usdc.FormatUnits(big.NewInt(3000000)))
}

func TestNetwork(t *testing.T) {
	n, err := ParseNetwork("localhost")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n.ChainID())
	_, err = ParseNetwork("foo")
	assert.Error(t, err)
	assert.Panics(t, func() { NetworkTest.ChainID() })
}
