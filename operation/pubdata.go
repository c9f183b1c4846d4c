package operation

import (
	"fmt"
	"math/big"
	"tokamak-zkrollup/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// pubDataWriter writes the fields of an operation at their offsets and pads
// the result to the chunks of the operation
type pubDataWriter struct {
	t   Type
	b   []byte
	err error
}

func newPubDataWriter(t Type) *pubDataWriter {
	b := make([]byte, 0, t.PublicDataLength())
	return &pubDataWriter{t: t, b: append(b, t.OpCode())}
}

func (w *pubDataWriter) raw(b []byte) *pubDataWriter {
	w.b = append(w.b, b...)
	return w
}

func (w *pubDataWriter) accountID(id common.AccountID) *pubDataWriter {
	b := id.Bytes()
	return w.raw(b[:])
}

func (w *pubDataWriter) tokenID(t common.TokenID) *pubDataWriter {
	b := t.Bytes()
	return w.raw(b[:])
}

func (w *pubDataWriter) nonce(n common.Nonce) *pubDataWriter {
	b := n.Bytes()
	return w.raw(b[:])
}

func (w *pubDataWriter) address(a ethCommon.Address) *pubDataWriter {
	return w.raw(a.Bytes())
}

func (w *pubDataWriter) fullAmount(v *big.Int) *pubDataWriter {
	if v == nil {
		v = big.NewInt(0)
	}
	b, err := common.BigIntToBytes16(v)
	if err != nil && w.err == nil {
		w.err = err
	}
	return w.raw(b[:])
}

func (w *pubDataWriter) packedAmount(v *big.Int) *pubDataWriter {
	b, err := common.PackTokenAmount(v)
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		b = make([]byte, common.PackedAmountBytesLen)
	}
	return w.raw(b)
}

func (w *pubDataWriter) packedFee(v *big.Int) *pubDataWriter {
	b, err := common.PackFeeAmount(v)
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		b = make([]byte, common.PackedFeeBytesLen)
	}
	return w.raw(b)
}

func (w *pubDataWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, common.Wrap(w.err)
	}
	if len(w.b) > w.t.PublicDataLength() {
		panic(fmt.Sprintf("%s pubdata of %d bytes does not fit in %d chunks",
			w.t, len(w.b), w.t.Chunks()))
	}
	out := make([]byte, w.t.PublicDataLength())
	copy(out, w.b)
	return out, nil
}

// pubDataReader reads the fields of an operation from its pubdata. The
// length is checked before reading so it never runs out of bytes.
type pubDataReader struct {
	b []byte
}

func (r *pubDataReader) raw(n int) []byte {
	v := r.b[:n]
	r.b = r.b[n:]
	return v
}

func (r *pubDataReader) accountID() common.AccountID {
	id, _ := common.AccountIDFromBytes(r.raw(common.AccountIDBytesLen))
	return id
}

func (r *pubDataReader) tokenID() common.TokenID {
	t, _ := common.TokenIDFromBytes(r.raw(common.TokenIDBytesLen))
	return t
}

func (r *pubDataReader) nonce() common.Nonce {
	n, _ := common.NonceFromBytes(r.raw(common.NonceBytesLen))
	return n
}

func (r *pubDataReader) address() ethCommon.Address {
	return ethCommon.BytesToAddress(r.raw(common.AddressBytesLen))
}

func (r *pubDataReader) fullAmount() *big.Int {
	return new(big.Int).SetBytes(r.raw(common.BalanceBytesLen))
}

func (r *pubDataReader) packedAmount() (*big.Int, error) {
	return common.UnpackTokenAmount(r.raw(common.PackedAmountBytesLen))
}

func (r *pubDataReader) packedFee() (*big.Int, error) {
	return common.UnpackFeeAmount(r.raw(common.PackedFeeBytesLen))
}

// newPubDataReader checks that b is the pubdata of an operation of kind t
// and returns a reader positioned after the opcode
func newPubDataReader(t Type, b []byte) (*pubDataReader, error) {
	if len(b) == 0 {
		return nil, common.Wrap(fmt.Errorf("%w: empty pubdata", ErrWrongPubDataLength))
	}
	if b[0] != t.OpCode() {
		return nil, common.Wrap(fmt.Errorf("%w: got 0x%02x, expected 0x%02x", ErrWrongOpCode,
			b[0], t.OpCode()))
	}
	if len(b) != t.PublicDataLength() {
		return nil, common.Wrap(fmt.Errorf("%w: %s pubdata of %d bytes, expected %d",
			ErrWrongPubDataLength, t, len(b), t.PublicDataLength()))
	}
	return &pubDataReader{b: b[1:]}, nil
}

// FromPublicData decodes the operation serialized in b. Fields that are not
// part of the pubdata (L1 sender addresses, most nonces, signatures, time
// ranges) are left at their zero value.
func FromPublicData(b []byte) (Op, error) {
	if len(b) == 0 {
		return nil, common.Wrap(fmt.Errorf("%w: empty pubdata", ErrWrongPubDataLength))
	}
	t, err := TypeFromOpCode(b[0])
	if err != nil {
		return nil, common.Wrap(err)
	}
	var op Op
	switch t {
	case TypeNoop:
		op, err = noopFromPublicData(b)
	case TypeDeposit:
		op, err = depositFromPublicData(b)
	case TypeTransferToNew:
		op, err = transferToNewFromPublicData(b)
	case TypeWithdraw:
		op, err = withdrawFromPublicData(b)
	case TypeClose:
		op, err = closeFromPublicData(b)
	case TypeTransfer:
		op, err = transferFromPublicData(b)
	case TypeFullExit:
		op, err = fullExitFromPublicData(b)
	case TypeChangePubKey:
		op, err = changePubKeyFromPublicData(b)
	case TypeForcedExit:
		op, err = forcedExitFromPublicData(b)
	case TypeExchange:
		op, err = exchangeFromPublicData(b)
	case TypeAddLiquidity:
		op, err = addLiquidityFromPublicData(b)
	case TypeRemoveLiquidity:
		op, err = removeLiquidityFromPublicData(b)
	}
	if err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}
