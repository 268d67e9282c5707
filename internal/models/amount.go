package models

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrScaleMismatch is returned when arithmetic mixes two token amounts
// carrying different decimal scales.
var ErrScaleMismatch = errors.New("token amounts have different decimal scales")

// TokenAmount is an integer token quantity scaled by the token's decimals.
type TokenAmount struct {
	Value    *big.Int
	Decimals uint8
}

func NewTokenAmount(value *big.Int, decimals uint8) TokenAmount {
	if value == nil {
		value = new(big.Int)
	}
	return TokenAmount{Value: new(big.Int).Set(value), Decimals: decimals}
}

// ParseTokenAmount converts a human-readable decimal string ("12.5") into a
// scaled integer amount.
func ParseTokenAmount(s string, decimals uint8) (TokenAmount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return TokenAmount{}, fmt.Errorf("amount %q is negative", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return TokenAmount{}, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	return TokenAmount{Value: scaled.BigInt(), Decimals: decimals}, nil
}

// Rescale converts the amount to a different decimal scale. Shrinking the
// scale truncates toward zero.
func (a TokenAmount) Rescale(decimals uint8) TokenAmount {
	if a.Decimals == decimals {
		return NewTokenAmount(a.Value, decimals)
	}
	v := new(big.Int).Set(a.Value)
	if decimals > a.Decimals {
		exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-a.Decimals)), nil)
		v.Mul(v, exp)
	} else {
		exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.Decimals-decimals)), nil)
		v.Quo(v, exp)
	}
	return TokenAmount{Value: v, Decimals: decimals}
}

func (a TokenAmount) Add(b TokenAmount) (TokenAmount, error) {
	if a.Decimals != b.Decimals {
		return TokenAmount{}, ErrScaleMismatch
	}
	return TokenAmount{Value: new(big.Int).Add(a.Value, b.Value), Decimals: a.Decimals}, nil
}

func (a TokenAmount) Sub(b TokenAmount) (TokenAmount, error) {
	if a.Decimals != b.Decimals {
		return TokenAmount{}, ErrScaleMismatch
	}
	return TokenAmount{Value: new(big.Int).Sub(a.Value, b.Value), Decimals: a.Decimals}, nil
}

func (a TokenAmount) Cmp(b TokenAmount) (int, error) {
	if a.Decimals != b.Decimals {
		return 0, ErrScaleMismatch
	}
	return a.Value.Cmp(b.Value), nil
}

func (a TokenAmount) Sign() int {
	if a.Value == nil {
		return 0
	}
	return a.Value.Sign()
}

// String renders the amount in human-readable units.
func (a TokenAmount) String() string {
	if a.Value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(a.Value, -int32(a.Decimals)).String()
}

// FormatUnits renders a raw scaled integer in human-readable units.
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
