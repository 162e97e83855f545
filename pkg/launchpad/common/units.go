package common

import (
	"math/big"
	"regexp"
	"strings"
)

const (
	// NativeDecimals is the number of decimals of the native currency.
	NativeDecimals = 9

	// LamportsPerSol is the number of lamports in one SOL.
	LamportsPerSol = 1_000_000_000

	// MaxDecimals is the largest number of decimals a mint can be created
	// with.
	MaxDecimals = 9
)

var decimalPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

// ToBaseUnits converts a non-negative decimal string, such as "1.5", into
// base units for a currency with the provided decimals. The conversion is
// exact: values with more fractional digits than decimals are rejected rather
// than truncated.
func ToBaseUnits(field, amount string, decimals uint8) (uint64, error) {
	amount = strings.TrimSpace(amount)
	if !decimalPattern.MatchString(amount) {
		return 0, NewValidationError(field, "%q is not a decimal number", amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if len(frac) > int(decimals) {
		return 0, NewValidationError(field, "at most %d decimal places are supported", decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	units, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return 0, NewValidationError(field, "%q is not a decimal number", amount)
	}
	if !units.IsUint64() {
		return 0, NewValidationError(field, "%s is too large", amount)
	}
	return units.Uint64(), nil
}

// ScaleSupply returns supply whole tokens in base units. The result must fit
// into the u64 amount used by the token program.
func ScaleSupply(supply uint64, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, NewValidationError("decimals", "must be between 0 and %d", MaxDecimals)
	}

	scaled := new(big.Int).Mul(new(big.Int).SetUint64(supply), pow10(decimals))
	if !scaled.IsUint64() {
		return 0, NewValidationError("supply", "%d with %d decimals overflows the maximum token amount", supply, decimals)
	}
	return scaled.Uint64(), nil
}

// FormatBaseUnits renders base units as a decimal string rounded to precision
// fractional digits.
func FormatBaseUnits(units uint64, decimals uint8, precision int) string {
	value := new(big.Rat).SetFrac(new(big.Int).SetUint64(units), pow10(decimals))
	return value.FloatString(precision)
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
