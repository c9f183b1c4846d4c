package common

import (
	"math/big"
	"sort"
)

// CollectedFee is the fee paid by one operation
type CollectedFee struct {
	Token  TokenID  `json:"token"`
	Amount *big.Int `json:"amount"`
}

// NewCollectedFee returns a CollectedFee holding a copy of amount
func NewCollectedFee(token TokenID, amount *big.Int) *CollectedFee {
	return &CollectedFee{Token: token, Amount: new(big.Int).Set(amount)}
}

// IsZero returns true when the fee carries no value
func (f *CollectedFee) IsZero() bool {
	return f == nil || f.Amount == nil || f.Amount.Sign() == 0
}

// FeeAccumulator aggregates the fees of the operations of a block by token
type FeeAccumulator map[TokenID]*big.Int

// Add adds fee to the accumulated amount of its token. Nil and zero fees are
// ignored.
func (fa FeeAccumulator) Add(fee *CollectedFee) {
	if fee.IsZero() {
		return
	}
	if acc, ok := fa[fee.Token]; ok {
		acc.Add(acc, fee.Amount)
		return
	}
	fa[fee.Token] = new(big.Int).Set(fee.Amount)
}

// Fees returns the accumulated fees ordered by token id
func (fa FeeAccumulator) Fees() []CollectedFee {
	fees := make([]CollectedFee, 0, len(fa))
	for token, amount := range fa {
		fees = append(fees, *NewCollectedFee(token, amount))
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].Token < fees[j].Token })
	return fees
}
