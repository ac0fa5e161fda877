// Package units converts between user-entered token amounts and the
// 18-decimal base units used by the token and staking contracts.
package units

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"cosmossdk.io/math"
)

// Decimals is the number of implied decimal digits of the staked token
const Decimals = math.LegacyPrecision

var one = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// One returns 10^18, the base-unit value of one whole token
func One() *big.Int {
	return new(big.Int).Set(one)
}

// ToBaseUnits converts a decimal string such as "1.5" into base units.
// The conversion is exact: more than 18 fractional digits is an error,
// never a rounding.
func ToBaseUnits(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	s = strings.TrimPrefix(s, "+")
	// LegacyDec wants digits on both sides of the point
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	} else if strings.HasPrefix(s, "-.") {
		s = "-0" + s[1:]
	}
	s = strings.TrimSuffix(s, ".")

	dec, err := math.LegacyNewDecFromStr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return dec.BigInt(), nil
}

// ToPositiveBaseUnits is ToBaseUnits restricted to amounts greater than zero
func ToPositiveBaseUnits(amount string) (*big.Int, error) {
	v, err := ToBaseUnits(amount)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", amount)
	}
	return v, nil
}

// WholeTokens renders base units as whole tokens, truncating the fraction.
// A nil value renders as "0".
func WholeTokens(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return new(big.Int).Quo(v, one).String()
}

// FormatTokens renders base units with the full fractional part, trailing zeros trimmed
func FormatTokens(v *big.Int) string {
	if v == nil {
		return "0"
	}
	s := math.LegacyNewDecFromBigIntWithPrec(v, Decimals).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// IsNegativeNumber reports whether raw parses as a number below zero.
// Partial input that is not a number yet ("-", "1e") is not negative.
func IsNegativeNumber(raw string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil && f < 0
}

// IsPositiveAmount reports whether raw converts exactly to a base-unit
// amount above zero, the same check the transactions apply
func IsPositiveAmount(raw string) bool {
	_, err := ToPositiveBaseUnits(raw)
	return err == nil
}
