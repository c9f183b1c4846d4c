package operation

import (
	"errors"
	"fmt"
	"tokamak-zkrollup/common"
)

// Type is the kind of an operation. Its value is the opcode that prefixes
// the operation pubdata.
type Type uint8

const (
	// TypeNoop fills unused chunks of a block
	TypeNoop Type = 0x00
	// TypeDeposit credits an L1 deposit
	TypeDeposit Type = 0x01
	// TypeTransferToNew is a transfer creating its recipient
	TypeTransferToNew Type = 0x02
	// TypeWithdraw moves funds to L1
	TypeWithdraw Type = 0x03
	// TypeClose removes an empty account. Only replayed, never created.
	TypeClose Type = 0x04
	// TypeTransfer is a transfer between existing accounts
	TypeTransfer Type = 0x05
	// TypeFullExit is an L1 requested withdrawal of a whole balance
	TypeFullExit Type = 0x06
	// TypeChangePubKey sets the signing key of an account
	TypeChangePubKey Type = 0x07
	// TypeForcedExit withdraws the balance of a locked account
	TypeForcedExit Type = 0x08
	// TypeExchange swaps two tokens of one account
	TypeExchange Type = 0x09
	// TypeAddLiquidity adds liquidity to a pool
	TypeAddLiquidity Type = 0x0a
	// TypeRemoveLiquidity removes liquidity from a pool
	TypeRemoveLiquidity Type = 0x0b
)

var (
	// ErrUnknownOpCode is used when pubdata starts with an opcode that is
	// not known
	ErrUnknownOpCode = errors.New("unknown opcode")
	// ErrWrongOpCode is used when pubdata is decoded as an operation of
	// another kind
	ErrWrongOpCode = errors.New("wrong opcode")
	// ErrWrongPubDataLength is used when the pubdata length is not the
	// chunks of its operation times common.ChunkBytes
	ErrWrongPubDataLength = errors.New("wrong pubdata length")
)

var typeChunks = map[Type]int{
	TypeNoop:            1,
	TypeDeposit:         6,
	TypeTransferToNew:   6,
	TypeWithdraw:        6,
	TypeClose:           1,
	TypeTransfer:        2,
	TypeFullExit:        6,
	TypeChangePubKey:    6,
	TypeForcedExit:      6,
	TypeExchange:        3,
	TypeAddLiquidity:    4,
	TypeRemoveLiquidity: 4,
}

var typeNames = map[Type]string{
	TypeNoop:            "Noop",
	TypeDeposit:         "Deposit",
	TypeTransferToNew:   "TransferToNew",
	TypeWithdraw:        "Withdraw",
	TypeClose:           "Close",
	TypeTransfer:        "Transfer",
	TypeFullExit:        "FullExit",
	TypeChangePubKey:    "ChangePubKey",
	TypeForcedExit:      "ForcedExit",
	TypeExchange:        "Exchange",
	TypeAddLiquidity:    "AddLiquidity",
	TypeRemoveLiquidity: "RemoveLiquidity",
}

// OpCode returns the first byte of the pubdata of the operation kind
func (t Type) OpCode() byte {
	return byte(t)
}

// Chunks returns the number of chunks of the operation kind. It panics on an
// unknown kind.
func (t Type) Chunks() int {
	chunks, ok := typeChunks[t]
	if !ok {
		panic(fmt.Sprintf("chunks of unknown operation type 0x%02x", uint8(t)))
	}
	return chunks
}

// PublicDataLength returns the pubdata length of the operation kind
func (t Type) PublicDataLength() int {
	return t.Chunks() * common.ChunkBytes
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(0x%02x)", uint8(t))
}

// TypeFromOpCode returns the operation kind of opcode
func TypeFromOpCode(opCode byte) (Type, error) {
	t := Type(opCode)
	if _, ok := typeChunks[t]; !ok {
		return 0, common.Wrap(fmt.Errorf("%w: 0x%02x", ErrUnknownOpCode, opCode))
	}
	return t, nil
}

// ChunksByOpCode returns the number of chunks of the operation with the
// given opcode
func ChunksByOpCode(opCode byte) (int, error) {
	t, err := TypeFromOpCode(opCode)
	if err != nil {
		return 0, common.Wrap(err)
	}
	return t.Chunks(), nil
}

// Types returns every operation kind, ordered by opcode
func Types() []Type {
	return []Type{TypeNoop, TypeDeposit, TypeTransferToNew, TypeWithdraw, TypeClose,
		TypeTransfer, TypeFullExit, TypeChangePubKey, TypeForcedExit, TypeExchange,
		TypeAddLiquidity, TypeRemoveLiquidity}
}
