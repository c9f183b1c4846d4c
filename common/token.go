package common

import (
	"math/big"
	"strconv"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// NativeTokenSymbol is the symbol of the token with id 0
const NativeTokenSymbol = "ETH"

// Token is a token supported by the rollup
type Token struct {
	ID       TokenID           `json:"id"`
	Address  ethCommon.Address `json:"address"`
	Symbol   string            `json:"symbol"`
	Decimals uint8             `json:"decimals"`
}

// FormatUnits returns amount as a decimal string scaled by the token
// decimals
func (t *Token) FormatUnits(amount *big.Int) string {
	if t.Decimals == 0 {
		return amount.String()
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
	q, r := new(big.Int).QuoRem(amount, scale, new(big.Int))
	frac := r.String()
	frac = strings.Repeat("0", int(t.Decimals)-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return q.String()
	}
	return q.String() + "." + frac
}

// TokenLikeKind tells which field of a TokenLike is set
type TokenLikeKind int

const (
	// TokenLikeID refers to a token by its rollup id
	TokenLikeID TokenLikeKind = iota
	// TokenLikeAddress refers to a token by its L1 contract address
	TokenLikeAddress
	// TokenLikeSymbol refers to a token by its symbol
	TokenLikeSymbol
)

// TokenLike is a reference to a token by id, L1 address or symbol
type TokenLike struct {
	Kind    TokenLikeKind
	ID      TokenID
	Address ethCommon.Address
	Symbol  string
}

// ParseTokenLike interprets value first as a token id, then as an L1
// address (with or without 0x prefix) and finally as a symbol
func ParseTokenLike(value string) TokenLike {
	if id, err := strconv.ParseUint(value, 10, 16); err == nil {
		return TokenLike{Kind: TokenLikeID, ID: TokenID(id)}
	}
	hexAddr := strings.TrimPrefix(value, "0x")
	if len(hexAddr) == 2*AddressBytesLen && ethCommon.IsHexAddress(hexAddr) {
		return TokenLike{Kind: TokenLikeAddress, Address: ethCommon.HexToAddress(hexAddr)}
	}
	return TokenLike{Kind: TokenLikeSymbol, Symbol: value}
}

// IsNative returns true if the reference points to the native token
func (tl TokenLike) IsNative() bool {
	switch tl.Kind {
	case TokenLikeID:
		return tl.ID == NativeTokenID
	case TokenLikeAddress:
		return tl.Address == EmptyAddr
	default:
		return tl.Symbol == NativeTokenSymbol
	}
}

// Matches returns true if the reference points to t
func (tl TokenLike) Matches(t *Token) bool {
	switch tl.Kind {
	case TokenLikeID:
		return tl.ID == t.ID
	case TokenLikeAddress:
		return tl.Address == t.Address
	default:
		return strings.EqualFold(tl.Symbol, t.Symbol)
	}
}

func (tl TokenLike) String() string {
	switch tl.Kind {
	case TokenLikeID:
		return strconv.FormatUint(uint64(tl.ID), 10)
	case TokenLikeAddress:
		return strings.ToLower(tl.Address.Hex())
	default:
		return tl.Symbol
	}
}
