package operation

import (
	"math/big"
	"tokamak-zkrollup/common"
)

// ExchangeOp swaps two tokens of one account. From and To both resolve to
// the account of the tx.
type ExchangeOp struct {
	Tx   *common.Exchange
	From common.AccountID
	To   common.AccountID
}

// Type returns TypeExchange
func (op *ExchangeOp) Type() Type { return TypeExchange }

// Chunks returns the chunks of an exchange
func (op *ExchangeOp) Chunks() int { return TypeExchange.Chunks() }

func (op *ExchangeOp) isOp() {}

// AccountIDs returns the debited and credited accounts
func (op *ExchangeOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.From, op.To}
}

// PublicData returns
// [op][accountId 4][tokenA 2][tokenB 2][amountA 5p][amountB 5p][price 2p][fee 2p]
func (op *ExchangeOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeExchange).
		accountID(op.From).
		tokenID(op.Tx.TokenA).
		tokenID(op.Tx.TokenB).
		packedAmount(op.Tx.AmountA).
		packedAmount(op.Tx.AmountB).
		packedFee(op.Tx.Price).
		packedFee(op.Tx.Fee).
		bytes()
}

func exchangeFromPublicData(b []byte) (*ExchangeOp, error) {
	r, err := newPubDataReader(TypeExchange, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &ExchangeOp{Tx: &common.Exchange{}}
	op.From = r.accountID()
	op.To = op.From
	op.Tx.AccountID = op.From
	op.Tx.TokenA = r.tokenID()
	op.Tx.TokenB = r.tokenID()
	if op.Tx.AmountA, err = r.packedAmount(); err != nil {
		return nil, common.Wrap(err)
	}
	if op.Tx.AmountB, err = r.packedAmount(); err != nil {
		return nil, common.Wrap(err)
	}
	if op.Tx.Price, err = r.packedFee(); err != nil {
		return nil, common.Wrap(err)
	}
	if op.Tx.Fee, err = r.packedFee(); err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}

// AddLiquidityOp adds liquidity. From and To both resolve to the account of
// the tx.
type AddLiquidityOp struct {
	Tx   *common.AddLiquidity
	From common.AccountID
	To   common.AccountID
}

// Type returns TypeAddLiquidity
func (op *AddLiquidityOp) Type() Type { return TypeAddLiquidity }

// Chunks returns the chunks of an add liquidity
func (op *AddLiquidityOp) Chunks() int { return TypeAddLiquidity.Chunks() }

func (op *AddLiquidityOp) isOp() {}

// AccountIDs returns the debited and credited accounts
func (op *AddLiquidityOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.From, op.To}
}

// PublicData returns [op][from 4][to 4][token 2][aDesired 5p][bDesired 5p]
// [aMin 5p][bMin 5p][feeA 2p][feeB 2p]
func (op *AddLiquidityOp) PublicData() ([]byte, error) {
	return liquidityPublicData(TypeAddLiquidity, &op.Tx.LiquidityTx, op.From, op.To)
}

func addLiquidityFromPublicData(b []byte) (*AddLiquidityOp, error) {
	op := &AddLiquidityOp{Tx: &common.AddLiquidity{}}
	var err error
	op.From, op.To, err = liquidityFromPublicData(TypeAddLiquidity, b, &op.Tx.LiquidityTx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}

// RemoveLiquidityOp removes liquidity. From and To both resolve to the
// account of the tx.
type RemoveLiquidityOp struct {
	Tx   *common.RemoveLiquidity
	From common.AccountID
	To   common.AccountID
}

// Type returns TypeRemoveLiquidity
func (op *RemoveLiquidityOp) Type() Type { return TypeRemoveLiquidity }

// Chunks returns the chunks of a remove liquidity
func (op *RemoveLiquidityOp) Chunks() int { return TypeRemoveLiquidity.Chunks() }

func (op *RemoveLiquidityOp) isOp() {}

// AccountIDs returns the debited and credited accounts
func (op *RemoveLiquidityOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.From, op.To}
}

// PublicData has the AddLiquidityOp layout with the RemoveLiquidity opcode
func (op *RemoveLiquidityOp) PublicData() ([]byte, error) {
	return liquidityPublicData(TypeRemoveLiquidity, &op.Tx.LiquidityTx, op.From, op.To)
}

func removeLiquidityFromPublicData(b []byte) (*RemoveLiquidityOp, error) {
	op := &RemoveLiquidityOp{Tx: &common.RemoveLiquidity{}}
	var err error
	op.From, op.To, err = liquidityFromPublicData(TypeRemoveLiquidity, b, &op.Tx.LiquidityTx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return op, nil
}

func liquidityPublicData(t Type, tx *common.LiquidityTx, from, to common.AccountID) ([]byte, error) {
	return newPubDataWriter(t).
		accountID(from).
		accountID(to).
		tokenID(tx.Token).
		packedAmount(tx.AmountADesired).
		packedAmount(tx.AmountBDesired).
		packedAmount(tx.AmountAMin).
		packedAmount(tx.AmountBMin).
		packedFee(tx.FeeA).
		packedFee(tx.FeeB).
		bytes()
}

func liquidityFromPublicData(t Type, b []byte, tx *common.LiquidityTx) (common.AccountID,
	common.AccountID, error) {
	r, err := newPubDataReader(t, b)
	if err != nil {
		return 0, 0, common.Wrap(err)
	}
	from := r.accountID()
	to := r.accountID()
	tx.AccountID = from
	tx.Token = r.tokenID()
	for _, dst := range []**big.Int{&tx.AmountADesired, &tx.AmountBDesired, &tx.AmountAMin,
		&tx.AmountBMin} {
		if *dst, err = r.packedAmount(); err != nil {
			return 0, 0, common.Wrap(err)
		}
	}
	if tx.FeeA, err = r.packedFee(); err != nil {
		return 0, 0, common.Wrap(err)
	}
	if tx.FeeB, err = r.packedFee(); err != nil {
		return 0, 0, common.Wrap(err)
	}
	return from, to, nil
}
