package operation

import (
	"math/big"
	"testing"
	"tokamak-zkrollup/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = ethCommon.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = ethCommon.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func liquidityFields() common.LiquidityTx {
	return common.LiquidityTx{
		AccountID:      9,
		Token:          4,
		AmountADesired: big.NewInt(1000),
		AmountBDesired: big.NewInt(900),
		AmountAMin:     big.NewInt(950),
		AmountBMin:     big.NewInt(850),
		FeeA:           big.NewInt(10),
		FeeB:           big.NewInt(20),
	}
}

// sampleOps returns one operation of every kind
func sampleOps() []Op {
	return []Op{
		&NoopOp{},
		&DepositOp{
			Priority:  &common.Deposit{Token: 1, Amount: big.NewInt(100), To: addrA},
			AccountID: 1,
		},
		&TransferToNewOp{
			Tx: &common.Transfer{AccountID: 1, To: addrB, Token: 1,
				Amount: big.NewInt(5000), Fee: big.NewInt(10)},
			From: 1, To: 2,
		},
		&WithdrawOp{
			Tx: &common.Withdraw{AccountID: 1, To: addrA, Token: 2,
				Amount: new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 100), big.NewInt(1)),
				Fee:    big.NewInt(1000)},
			AccountID: 1,
		},
		&CloseOp{Tx: &common.Close{AccountID: 3}, AccountID: 3},
		&TransferOp{
			Tx: &common.Transfer{AccountID: 1, Token: 1,
				Amount: big.NewInt(777), Fee: big.NewInt(2)},
			From: 1, To: 2,
		},
		&FullExitOp{
			Priority:       &common.FullExit{AccountID: 5, EthAddress: addrB, Token: 3},
			WithdrawAmount: big.NewInt(145),
		},
		&ChangePubKeyOp{
			Tx: &common.ChangePubKey{AccountID: 6, Account: addrA,
				NewPubKeyHash: common.PubKeyHash{1, 2, 3}, Nonce: 11, FeeToken: 2,
				Fee: big.NewInt(30)},
			AccountID: 6,
		},
		&ForcedExitOp{
			Tx: &common.ForcedExit{InitiatorAccountID: 7, Target: addrB, Token: 1,
				Fee: big.NewInt(5)},
			TargetAccountID: 8,
			WithdrawAmount:  big.NewInt(123456),
		},
		&ExchangeOp{
			Tx: &common.Exchange{AccountID: 9, TokenA: 1, TokenB: 2,
				AmountA: big.NewInt(100), AmountB: big.NewInt(200),
				Price: big.NewInt(2), Fee: big.NewInt(1)},
			From: 9, To: 9,
		},
		&AddLiquidityOp{Tx: &common.AddLiquidity{LiquidityTx: liquidityFields()}, From: 9, To: 9},
		&RemoveLiquidityOp{Tx: &common.RemoveLiquidity{LiquidityTx: liquidityFields()},
			From: 9, To: 9},
	}
}

func TestChunks(t *testing.T) {
	expected := map[Type]int{
		TypeNoop: 1, TypeDeposit: 6, TypeTransferToNew: 6, TypeWithdraw: 6, TypeClose: 1,
		TypeTransfer: 2, TypeFullExit: 6, TypeChangePubKey: 6, TypeForcedExit: 6,
		TypeExchange: 3, TypeAddLiquidity: 4, TypeRemoveLiquidity: 4,
	}
	for _, typ := range Types() {
		assert.Equal(t, expected[typ], typ.Chunks(), typ.String())
		chunks, err := ChunksByOpCode(typ.OpCode())
		require.NoError(t, err)
		assert.Equal(t, expected[typ], chunks)
	}
	_, err := ChunksByOpCode(0x0c)
	assert.True(t, common.Is(err, ErrUnknownOpCode))
	assert.Panics(t, func() { Type(0xff).Chunks() })
}

func TestPublicDataRoundTrip(t *testing.T) {
	for _, op := range sampleOps() {
		pubData, err := op.PublicData()
		require.NoError(t, err, op.Type().String())
		assert.Equal(t, op.Chunks()*common.ChunkBytes, len(pubData), op.Type().String())
		assert.Equal(t, op.Type().OpCode(), pubData[0])

		decoded, err := FromPublicData(pubData)
		require.NoError(t, err, op.Type().String())
		assert.Equal(t, op.Type(), decoded.Type())
		assert.Equal(t, op.AccountIDs(), decoded.AccountIDs())

		reencoded, err := decoded.PublicData()
		require.NoError(t, err)
		assert.Equal(t, pubData, reencoded, op.Type().String())
	}
}

func TestPublicDataLayout(t *testing.T) {
	op := &TransferOp{
		Tx:   &common.Transfer{Token: 0x0102, Amount: big.NewInt(1000), Fee: big.NewInt(1000)},
		From: 0x0a0b0c0d,
		To:   0x01020304,
	}
	pubData, err := op.PublicData()
	require.NoError(t, err)
	expected := []byte{
		0x05,
		0x0a, 0x0b, 0x0c, 0x0d,
		0x01, 0x02,
		0x01, 0x02, 0x03, 0x04,
		0x00, 0x00, 0x00, 0x7d, 0x00, // 1000 << 5
		0x7d, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, expected[:18], pubData)

	decoded, err := FromPublicData(pubData)
	require.NoError(t, err)
	transfer := decoded.(*TransferOp)
	assert.Equal(t, "1000", transfer.Tx.Amount.String())
	assert.Equal(t, "1000", transfer.Tx.Fee.String())
	// fields not in pubdata are zero
	assert.Equal(t, common.EmptyAddr, transfer.Tx.From)
	assert.Equal(t, common.EmptyAddr, transfer.Tx.To)
	assert.Equal(t, common.Nonce(0), transfer.Tx.Nonce)

	noop, err := (&NoopOp{}).PublicData()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, common.ChunkBytes), noop)
}

func TestFromPublicDataErrors(t *testing.T) {
	_, err := FromPublicData(nil)
	assert.True(t, common.Is(err, ErrWrongPubDataLength))

	_, err = FromPublicData([]byte{0x42, 0, 0})
	assert.True(t, common.Is(err, ErrUnknownOpCode))

	deposit := sampleOps()[1]
	pubData, err := deposit.PublicData()
	require.NoError(t, err)
	_, err = FromPublicData(pubData[:len(pubData)-1])
	assert.True(t, common.Is(err, ErrWrongPubDataLength))
	_, err = FromPublicData(append(pubData, 0))
	assert.True(t, common.Is(err, ErrWrongPubDataLength))

	_, err = depositFromPublicData(append([]byte{byte(TypeWithdraw)}, pubData[1:]...))
	assert.True(t, common.Is(err, ErrWrongOpCode))
}

func TestUnpackablePublicData(t *testing.T) {
	op := &TransferOp{Tx: &common.Transfer{
		Amount: new(big.Int).Add(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
			big.NewInt(1)),
		Fee: big.NewInt(0),
	}}
	_, err := op.PublicData()
	assert.True(t, common.Is(err, common.ErrNotPackable))
}

func TestWithdrawalData(t *testing.T) {
	ops := sampleOps()
	for _, op := range ops {
		data, ok := WithdrawalData(op)
		switch op.Type() {
		case TypeWithdraw, TypeFullExit, TypeForcedExit:
			require.True(t, ok, op.Type().String())
			assert.Equal(t, 1+20+2+16, len(data))
		default:
			assert.False(t, ok, op.Type().String())
		}
	}

	data, _ := WithdrawalData(ops[3])
	assert.Equal(t, byte(1), data[0])
	assert.Equal(t, addrA.Bytes(), data[1:21])
	assert.Equal(t, []byte{0, 2}, data[21:23])

	data, _ = WithdrawalData(ops[6])
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, addrB.Bytes(), data[1:21])
	assert.Equal(t, "145", new(big.Int).SetBytes(data[23:]).String())

	data, _ = WithdrawalData(ops[8])
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, "123456", new(big.Int).SetBytes(data[23:]).String())

	// a full exit that was not executed pays out zero
	data, _ = WithdrawalData(&FullExitOp{Priority: &common.FullExit{}})
	assert.Equal(t, make([]byte, 16), data[23:])
}

func TestOperationClassification(t *testing.T) {
	onchain := map[Type]bool{TypeDeposit: true, TypeWithdraw: true, TypeFullExit: true,
		TypeChangePubKey: true, TypeForcedExit: true}
	for _, op := range sampleOps() {
		assert.Equal(t, onchain[op.Type()], IsOnchainOperation(op), op.Type().String())
		assert.Equal(t, op.Type() == TypeDeposit || op.Type() == TypeFullExit, IsPriorityOp(op))
	}

	witness, ok := EthWitness(sampleOps()[7])
	require.True(t, ok)
	assert.Equal(t, []byte{}, witness)
	_, ok = EthWitness(&NoopOp{})
	assert.False(t, ok)
}

func TestSplitPublicData(t *testing.T) {
	ops := sampleOps()
	block, err := PublicDataOf(ops)
	require.NoError(t, err)

	parts, err := SplitPublicData(block)
	require.NoError(t, err)
	require.Equal(t, len(ops), len(parts))
	for i, part := range parts {
		decoded, err := FromPublicData(part)
		require.NoError(t, err)
		assert.Equal(t, ops[i].Type(), decoded.Type())
	}

	_, err = SplitPublicData(block[:len(block)-1])
	assert.True(t, common.Is(err, ErrWrongPubDataLength))
}
