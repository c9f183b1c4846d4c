// Package operation implements the operations a rollup block is made of and
// their pubdata, the fixed binary layout the L1 contract reads.
package operation

import (
	"fmt"
	"math/big"
	"tokamak-zkrollup/common"
)

// Op is an executed operation: the transaction or priority request that
// produced it together with the resolved account ids. The set of
// implementations is closed.
type Op interface {
	Type() Type
	// Chunks returns the number of chunks of the pubdata
	Chunks() int
	// PublicData returns the pubdata of the operation, padded to Chunks
	PublicData() ([]byte, error)
	// AccountIDs returns the accounts updated by the operation
	AccountIDs() []common.AccountID
	isOp()
}

// WithdrawalData returns the L1 payout record of op:
// [queueFlag 1][address 20][token 2][amount 16]. The flag is 1 for
// Withdraw, which can be processed by the fast queue, and 0 for FullExit
// and ForcedExit. The second value is false for operations that pay out
// nothing.
func WithdrawalData(op Op) ([]byte, bool) {
	var (
		flag    byte
		address []byte
		token   common.TokenID
		amount  []byte
	)
	switch o := op.(type) {
	case *WithdrawOp:
		flag = 1
		address = o.Tx.To.Bytes()
		token = o.Tx.Token
		amount = amountBytes(o.Tx.Amount)
	case *FullExitOp:
		address = o.Priority.EthAddress.Bytes()
		token = o.Priority.Token
		amount = amountBytes(o.WithdrawAmount)
	case *ForcedExitOp:
		address = o.Tx.Target.Bytes()
		token = o.Tx.Token
		amount = amountBytes(o.WithdrawAmount)
	default:
		return nil, false
	}
	b := make([]byte, 0, 1+common.AddressBytesLen+common.TokenIDBytesLen+common.BalanceBytesLen)
	b = append(b, flag)
	b = append(b, address...)
	tokenBytes := token.Bytes()
	b = append(b, tokenBytes[:]...)
	return append(b, amount...), true
}

// amountBytes returns the 16 bytes of v, zero when v is nil or too big
func amountBytes(v *big.Int) []byte {
	if v == nil {
		return make([]byte, common.BalanceBytesLen)
	}
	b, err := common.BigIntToBytes16(v)
	if err != nil {
		return make([]byte, common.BalanceBytesLen)
	}
	return b[:]
}

// EthWitness returns the L1 authorization witness of a ChangePubKey
// operation. The second value is false for other operations.
func EthWitness(op Op) ([]byte, bool) {
	cpk, ok := op.(*ChangePubKeyOp)
	if !ok {
		return nil, false
	}
	return cpk.Tx.EthAuthData.EthWitness(), true
}

// IsOnchainOperation returns true if the L1 contract has to process op when
// the block is committed
func IsOnchainOperation(op Op) bool {
	switch op.Type() {
	case TypeDeposit, TypeWithdraw, TypeFullExit, TypeChangePubKey, TypeForcedExit:
		return true
	default:
		return false
	}
}

// IsPriorityOp returns true if op comes from the L1 priority queue
func IsPriorityOp(op Op) bool {
	switch op.Type() {
	case TypeDeposit, TypeFullExit:
		return true
	default:
		return false
	}
}

// PublicDataOf concatenates the pubdata of ops
func PublicDataOf(ops []Op) ([]byte, error) {
	var b []byte
	for _, op := range ops {
		pd, err := op.PublicData()
		if err != nil {
			return nil, common.Wrap(err)
		}
		b = append(b, pd...)
	}
	return b, nil
}

// SplitPublicData splits the pubdata of a block into the pubdata of each
// operation, using the opcode of each one to find its length
func SplitPublicData(b []byte) ([][]byte, error) {
	var out [][]byte
	for len(b) > 0 {
		chunks, err := ChunksByOpCode(b[0])
		if err != nil {
			return nil, common.Wrap(err)
		}
		n := chunks * common.ChunkBytes
		if len(b) < n {
			return nil, common.Wrap(fmt.Errorf("%w: %d bytes left, operation needs %d",
				ErrWrongPubDataLength, len(b), n))
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out, nil
}
