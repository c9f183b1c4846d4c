package main

import (
	"encoding/json"
	"math/big"
	"testing"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/operation"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePubData(t *testing.T) {
	to := ethCommon.HexToAddress("0x00000000000000000000000000000000000000aa")
	ops := []operation.Op{
		&operation.DepositOp{
			Priority:  &common.Deposit{From: to, Token: 2, Amount: big.NewInt(500), To: to},
			AccountID: 3,
		},
		&operation.WithdrawOp{
			Tx: &common.Withdraw{AccountID: 3, From: to, To: to, Token: 2,
				Amount: big.NewInt(200), Fee: big.NewInt(0)},
			AccountID: 3,
		},
	}
	pubdata, err := operation.PublicDataOf(ops)
	require.NoError(t, err)

	decoded, err := decodePubData(pubdata)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "Deposit", decoded[0].Type)
	assert.Equal(t, 6, decoded[0].Chunks)
	assert.Empty(t, decoded[0].Withdrawal)
	assert.Equal(t, "Withdraw", decoded[1].Type)
	assert.Equal(t, []common.AccountID{3}, decoded[1].AccountIDs)
	require.Len(t, decoded[1].Withdrawal, 39)
	assert.Equal(t, byte(1), decoded[1].Withdrawal[0])

	_, err = json.Marshal(decoded)
	require.NoError(t, err)

	_, err = decodePubData(pubdata[:len(pubdata)-1])
	assert.True(t, common.Is(err, operation.ErrWrongPubDataLength))
}
