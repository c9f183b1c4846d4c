package common

import (
	"encoding/binary"
	"math"
)

// TimeRangeBytesLen is the length of a TimeRange in the signed tx bytes
const TimeRangeBytesLen = 16

// TimeRange bounds, in unix seconds, when a transaction may be executed
type TimeRange struct {
	ValidFrom  uint64 `json:"validFrom"`
	ValidUntil uint64 `json:"validUntil"`
}

// DefaultTimeRange is valid at any time
var DefaultTimeRange = TimeRange{ValidFrom: 0, ValidUntil: math.MaxUint64}

// Bytes returns [validFrom 8][validUntil 8] big-endian
func (tr TimeRange) Bytes() []byte {
	var b [TimeRangeBytesLen]byte
	binary.BigEndian.PutUint64(b[0:8], tr.ValidFrom)
	binary.BigEndian.PutUint64(b[8:16], tr.ValidUntil)
	return b[:]
}

// CheckCorrectness returns ErrInvalidTimeRange if the range is empty
func (tr TimeRange) CheckCorrectness() error {
	if tr.ValidFrom > tr.ValidUntil {
		return Wrap(ErrInvalidTimeRange)
	}
	return nil
}

// IsValid returns true if t is inside the range
func (tr TimeRange) IsValid(t uint64) bool {
	return tr.ValidFrom <= t && t <= tr.ValidUntil
}
