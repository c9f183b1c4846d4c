package common

import (
	"errors"
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

const (
	// PriorityOpTypeDeposit is the op type of a deposit in the priority queue
	PriorityOpTypeDeposit uint8 = 0x01
	// PriorityOpTypeFullExit is the op type of a full exit in the priority
	// queue
	PriorityOpTypeFullExit uint8 = 0x06

	depositPubDataLen  = 1 + AccountIDBytesLen + TokenIDBytesLen + BalanceBytesLen + AddressBytesLen
	fullExitPubDataLen = 1 + AccountIDBytesLen + AddressBytesLen + TokenIDBytesLen + BalanceBytesLen
)

// ErrPriorityOpPubData is used when the pubdata of a priority queue event
// does not match its op type
var ErrPriorityOpPubData = errors.New("priority op pubdata length mismatch")

// ErrUnsupportedPriorityOp is used for unknown priority queue op types
var ErrUnsupportedPriorityOp = errors.New("unsupported priority op type")

// PriorityOpData is the payload of a priority operation: *Deposit or
// *FullExit
type PriorityOpData interface {
	OpType() uint8
	isPriorityOpData()
}

// Deposit moves Amount of Token locked on L1 by From to the L2 account owned
// by To
type Deposit struct {
	From   ethCommon.Address `json:"from"`
	Token  TokenID           `json:"token"`
	Amount *big.Int          `json:"amount"`
	To     ethCommon.Address `json:"to"`
}

// OpType returns PriorityOpTypeDeposit
func (d *Deposit) OpType() uint8 { return PriorityOpTypeDeposit }

func (d *Deposit) isPriorityOpData() {}

// PubdataForPriorityQueueCancel returns the deposit pubdata the L1 contract
// expects to refund a cancelled deposit, with a zero account id
func (d *Deposit) PubdataForPriorityQueueCancel() ([]byte, error) {
	amount, err := BigIntToBytes16(d.Amount)
	if err != nil {
		return nil, Wrap(err)
	}
	b := make([]byte, 0, depositPubDataLen)
	b = append(b, PriorityOpTypeDeposit)
	b = append(b, 0, 0, 0, 0)
	token := d.Token.Bytes()
	b = append(b, token[:]...)
	b = append(b, amount[:]...)
	return append(b, d.To.Bytes()...), nil
}

// FullExit withdraws the whole Token balance of AccountID to EthAddress.
// It is requested on L1 so it needs no L2 signature.
type FullExit struct {
	AccountID  AccountID         `json:"accountId"`
	EthAddress ethCommon.Address `json:"ethAddress"`
	Token      TokenID           `json:"token"`
}

// OpType returns PriorityOpTypeFullExit
func (fe *FullExit) OpType() uint8 { return PriorityOpTypeFullExit }

func (fe *FullExit) isPriorityOpData() {}

// PriorityOp is an operation requested through the L1 priority queue
type PriorityOp struct {
	SerialID      SerialID       `json:"serialId"`
	Data          PriorityOpData `json:"data"`
	DeadlineBlock uint64         `json:"deadlineBlock"`
	EthHash       ethCommon.Hash `json:"ethHash"`
	EthBlock      uint64         `json:"ethBlock"`
}

// pubDataReader reads fixed width fields and fails on shortfall
type pubDataReader struct {
	b   []byte
	err error
}

func (r *pubDataReader) next(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.b) < n {
		r.err = Wrap(fmt.Errorf("%w: need %d bytes, %d left", ErrPriorityOpPubData, n, len(r.b)))
		return make([]byte, n)
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v
}

// ParsePriorityOpFromQueueLogs parses the pubdata of a priority queue
// event of the given op type. sender is the L1 account that emitted the
// request.
func ParsePriorityOpFromQueueLogs(pubData []byte, opType uint8,
	sender ethCommon.Address) (PriorityOpData, error) {
	r := &pubDataReader{b: pubData}
	switch opType {
	case PriorityOpTypeDeposit:
		r.next(1)
		r.next(AccountIDBytesLen)
		token := TokenID(new(big.Int).SetBytes(r.next(TokenIDBytesLen)).Uint64())
		amount := new(big.Int).SetBytes(r.next(BalanceBytesLen))
		to := ethCommon.BytesToAddress(r.next(AddressBytesLen))
		if r.err != nil {
			return nil, r.err
		}
		if len(r.b) != 0 {
			return nil, Wrap(fmt.Errorf("%w: deposit has %d trailing bytes",
				ErrPriorityOpPubData, len(r.b)))
		}
		return &Deposit{From: sender, Token: token, Amount: amount, To: to}, nil
	case PriorityOpTypeFullExit:
		r.next(1)
		accountID, _ := AccountIDFromBytes(r.next(AccountIDBytesLen))
		ethAddress := ethCommon.BytesToAddress(r.next(AddressBytesLen))
		token := TokenID(new(big.Int).SetBytes(r.next(TokenIDBytesLen)).Uint64())
		if r.err != nil {
			return nil, r.err
		}
		// the amount is filled by the operation, the request carries a
		// placeholder
		if len(r.b) != BalanceBytesLen {
			return nil, Wrap(fmt.Errorf("%w: full exit has %d bytes after token, expected %d",
				ErrPriorityOpPubData, len(r.b), BalanceBytesLen))
		}
		return &FullExit{AccountID: accountID, EthAddress: ethAddress, Token: token}, nil
	default:
		return nil, Wrap(fmt.Errorf("%w: %d", ErrUnsupportedPriorityOp, opType))
	}
}

// ArgsForPriorityQueueCancel returns the number of ops and, for each of
// them, the deposit pubdata to refund (empty for non deposits)
func ArgsForPriorityQueueCancel(ops []PriorityOp) (uint64, [][]byte, error) {
	data := make([][]byte, len(ops))
	for i, op := range ops {
		d, ok := op.Data.(*Deposit)
		if !ok {
			data[i] = []byte{}
			continue
		}
		b, err := d.PubdataForPriorityQueueCancel()
		if err != nil {
			return 0, nil, Wrap(err)
		}
		data[i] = b
	}
	return uint64(len(ops)), data, nil
}
