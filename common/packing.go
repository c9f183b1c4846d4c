package common

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// AmountMantissaBitWidth is the mantissa width of a packed amount
	AmountMantissaBitWidth = 35
	// AmountExponentBitWidth is the exponent width of a packed amount
	AmountExponentBitWidth = 5
	// FeeMantissaBitWidth is the mantissa width of a packed fee
	FeeMantissaBitWidth = 11
	// FeeExponentBitWidth is the exponent width of a packed fee
	FeeExponentBitWidth = 5

	// PackedAmountBytesLen is the length of a packed amount on the wire
	PackedAmountBytesLen = (AmountMantissaBitWidth + AmountExponentBitWidth) / 8
	// PackedFeeBytesLen is the length of a packed fee on the wire
	PackedFeeBytesLen = (FeeMantissaBitWidth + FeeExponentBitWidth) / 8

	packingBase = 10
)

var (
	// ErrPackedOverflow is used when a packed value has more bits than
	// the target format
	ErrPackedOverflow = errors.New("packed value overflow")

	ten = big.NewInt(packingBase)
)

// floatFormat describes a decimal floating point format of mantissa and
// exponent bit widths, where value = mantissa * 10^exponent
type floatFormat struct {
	mantissaBits uint
	exponentBits uint
}

var (
	amountFormat = floatFormat{AmountMantissaBitWidth, AmountExponentBitWidth}
	feeFormat    = floatFormat{FeeMantissaBitWidth, FeeExponentBitWidth}
)

func (ff floatFormat) maxMantissa() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), ff.mantissaBits), big.NewInt(1))
}

func (ff floatFormat) maxExponent() int {
	return 1<<ff.exponentBits - 1
}

func (ff floatFormat) byteLen() int {
	return int(ff.mantissaBits+ff.exponentBits) / 8
}

// split finds the mantissa and exponent for v. When exact is set, only
// trailing zeros are removed and an error is returned if the result does not
// fit. Otherwise the value is rounded down to the closest representable one.
func (ff floatFormat) split(v *big.Int, exact bool) (*big.Int, int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, 0, Wrap(fmt.Errorf("%w: negative or nil value", ErrNotPackable))
	}
	maxM := ff.maxMantissa()
	m := new(big.Int).Set(v)
	e := 0
	rem := new(big.Int)
	for m.Cmp(maxM) > 0 {
		q, r := new(big.Int).QuoRem(m, ten, rem)
		if exact && r.Sign() != 0 {
			return nil, 0, Wrap(fmt.Errorf("%w: %s loses precision", ErrNotPackable, v))
		}
		m = q
		e++
	}
	if e > ff.maxExponent() {
		return nil, 0, Wrap(fmt.Errorf("%w: %s exponent %d > %d", ErrNotPackable, v, e,
			ff.maxExponent()))
	}
	return m, e, nil
}

func (ff floatFormat) pack(m *big.Int, e int) []byte {
	packed := new(big.Int).Lsh(m, ff.exponentBits)
	packed.Or(packed, big.NewInt(int64(e)))
	b := make([]byte, ff.byteLen())
	packed.FillBytes(b)
	return b
}

func (ff floatFormat) unpack(b []byte) (*big.Int, error) {
	if len(b) != ff.byteLen() {
		return nil, Wrap(fmt.Errorf("%w: packed value of %d bytes, expected %d",
			ErrInvalidLength, len(b), ff.byteLen()))
	}
	packed := new(big.Int).SetBytes(b)
	expMask := big.NewInt(int64(ff.maxExponent()))
	e := new(big.Int).And(packed, expMask)
	m := new(big.Int).Rsh(packed, ff.exponentBits)
	if m.Cmp(ff.maxMantissa()) > 0 {
		return nil, Wrap(ErrPackedOverflow)
	}
	return m.Mul(m, new(big.Int).Exp(ten, e, nil)), nil
}

func (ff floatFormat) closest(v *big.Int) *big.Int {
	if v == nil || v.Sign() <= 0 {
		return big.NewInt(0)
	}
	m, e, err := ff.split(v, false)
	if err != nil {
		// values above the representable maximum saturate
		maxV := new(big.Int).Exp(ten, big.NewInt(int64(ff.maxExponent())), nil)
		return maxV.Mul(maxV, ff.maxMantissa())
	}
	return m.Mul(m, new(big.Int).Exp(ten, big.NewInt(int64(e)), nil))
}

// PackTokenAmount encodes an amount in the 5 bytes packed format. It fails
// with ErrNotPackable when the amount can not be represented exactly.
func PackTokenAmount(amount *big.Int) ([]byte, error) {
	m, e, err := amountFormat.split(amount, true)
	if err != nil {
		return nil, Wrap(err)
	}
	return amountFormat.pack(m, e), nil
}

// UnpackTokenAmount decodes a 5 bytes packed amount
func UnpackTokenAmount(b []byte) (*big.Int, error) {
	return amountFormat.unpack(b)
}

// PackFeeAmount encodes a fee in the 2 bytes packed format. It fails with
// ErrNotPackable when the fee can not be represented exactly.
func PackFeeAmount(fee *big.Int) ([]byte, error) {
	m, e, err := feeFormat.split(fee, true)
	if err != nil {
		return nil, Wrap(err)
	}
	return feeFormat.pack(m, e), nil
}

// UnpackFeeAmount decodes a 2 bytes packed fee
func UnpackFeeAmount(b []byte) (*big.Int, error) {
	return feeFormat.unpack(b)
}

// IsTokenAmountPackable returns true if the amount survives a pack/unpack
// round trip
func IsTokenAmountPackable(amount *big.Int) bool {
	_, _, err := amountFormat.split(amount, true)
	return err == nil
}

// IsFeeAmountPackable returns true if the fee survives a pack/unpack round
// trip
func IsFeeAmountPackable(fee *big.Int) bool {
	_, _, err := feeFormat.split(fee, true)
	return err == nil
}

// ClosestPackableTokenAmount rounds the amount down to the closest value
// that can be packed
func ClosestPackableTokenAmount(amount *big.Int) *big.Int {
	return amountFormat.closest(amount)
}

// ClosestPackableFeeAmount rounds the fee down to the closest value that can
// be packed
func ClosestPackableFeeAmount(fee *big.Int) *big.Int {
	return feeFormat.closest(fee)
}
