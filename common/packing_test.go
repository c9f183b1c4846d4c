package common

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigPow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func TestPackTokenAmount(t *testing.T) {
	for _, v := range []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(1_000_000),
		big.NewInt(34359738367), // 2^35 - 1
		bigPow10(18),
		new(big.Int).Mul(big.NewInt(123456789), bigPow10(20)),
	} {
		packed, err := PackTokenAmount(v)
		require.NoError(t, err, v.String())
		assert.Equal(t, PackedAmountBytesLen, len(packed))
		unpacked, err := UnpackTokenAmount(packed)
		require.NoError(t, err)
		assert.Equal(t, v.String(), unpacked.String())
		assert.True(t, IsTokenAmountPackable(v))
	}

	// loses precision
	v := new(big.Int).Add(bigPow10(18), big.NewInt(1))
	assert.False(t, IsTokenAmountPackable(v))
	_, err := PackTokenAmount(v)
	assert.True(t, Is(err, ErrNotPackable))
	assert.Equal(t, bigPow10(18).String(), ClosestPackableTokenAmount(v).String())

	// exponent does not fit in 5 bits
	assert.True(t, IsTokenAmountPackable(bigPow10(40)))
	assert.False(t, IsTokenAmountPackable(bigPow10(42)))
	assert.False(t, IsTokenAmountPackable(big.NewInt(-1)))
}

func TestPackFeeAmount(t *testing.T) {
	packed, err := PackFeeAmount(big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7d, 0x00}, packed)

	packed, err = PackFeeAmount(big.NewInt(12340000))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x9a, 0x44}, packed)
	unpacked, err := UnpackFeeAmount(packed)
	require.NoError(t, err)
	assert.Equal(t, "12340000", unpacked.String())

	assert.True(t, IsFeeAmountPackable(big.NewInt(2047)))
	assert.False(t, IsFeeAmountPackable(big.NewInt(2048)))
	assert.False(t, IsFeeAmountPackable(big.NewInt(20480)))
	assert.Equal(t, "2040", ClosestPackableFeeAmount(big.NewInt(2048)).String())
	assert.Equal(t, "0", ClosestPackableFeeAmount(big.NewInt(0)).String())

	_, err = UnpackFeeAmount([]byte{1, 2, 3})
	assert.True(t, Is(err, ErrInvalidLength))
}

func TestClosestPackableIsPackable(t *testing.T) {
	for _, v := range []*big.Int{
		big.NewInt(123456789012345),
		new(big.Int).Add(bigPow10(30), big.NewInt(7)),
		big.NewInt(999999),
	} {
		closest := ClosestPackableTokenAmount(v)
		assert.True(t, IsTokenAmountPackable(closest))
		assert.True(t, closest.Cmp(v) <= 0)
		closestFee := ClosestPackableFeeAmount(v)
		assert.True(t, IsFeeAmountPackable(closestFee))
		assert.True(t, closestFee.Cmp(v) <= 0)
	}
}

func TestPackingSweep(t *testing.T) {
	type format struct {
		name       string
		ff         floatFormat
		pack       func(*big.Int) ([]byte, error)
		unpack     func([]byte) (*big.Int, error)
		closest    func(*big.Int) *big.Int
		isPackable func(*big.Int) bool
	}
	formats := []format{
		{"amount", amountFormat, PackTokenAmount, UnpackTokenAmount,
			ClosestPackableTokenAmount, IsTokenAmountPackable},
		{"fee", feeFormat, PackFeeAmount, UnpackFeeAmount,
			ClosestPackableFeeAmount, IsFeeAmountPackable},
	}
	r := rand.New(rand.NewSource(42)) //nolint:gosec
	for _, f := range formats {
		maxM := f.ff.maxMantissa()
		for e := 0; e <= f.ff.maxExponent(); e++ {
			scale := new(big.Int).Exp(ten, big.NewInt(int64(e)), nil)
			mantissas := []*big.Int{big.NewInt(0), big.NewInt(1), maxM}
			for i := 0; i < 8; i++ {
				mantissas = append(mantissas, new(big.Int).Rand(r, new(big.Int).Add(maxM,
					big.NewInt(1))))
			}
			for _, m := range mantissas {
				exact := new(big.Int).Mul(m, scale)
				require.True(t, f.isPackable(exact), "%s %s", f.name, exact)
				packed, err := f.pack(exact)
				require.NoError(t, err)
				unpacked, err := f.unpack(packed)
				require.NoError(t, err)
				require.Equal(t, exact.String(), unpacked.String(), f.name)

				// a value between exact and the next step rounds down to
				// at least exact
				x := new(big.Int).Set(exact)
				if e > 0 {
					x.Add(x, new(big.Int).Rand(r, scale))
				}
				c := f.closest(x)
				require.True(t, c.Cmp(x) <= 0, "%s closest(%s) = %s", f.name, x, c)
				require.True(t, c.Cmp(exact) >= 0, "%s closest(%s) = %s", f.name, x, c)
				packed, err = f.pack(c)
				require.NoError(t, err, "%s closest(%s) = %s", f.name, x, c)
				unpacked, err = f.unpack(packed)
				require.NoError(t, err)
				require.Equal(t, c.String(), unpacked.String(), f.name)
			}
		}
	}
}
