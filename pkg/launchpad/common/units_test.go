package common

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	for _, tc := range []struct {
		amount   string
		decimals uint8
		expected uint64
	}{
		{"1.5", NativeDecimals, 1_500_000_000},
		{"0", NativeDecimals, 0},
		{"1", NativeDecimals, LamportsPerSol},
		{"0.000000001", NativeDecimals, 1},
		{".25", NativeDecimals, 250_000_000},
		{"2.", NativeDecimals, 2 * LamportsPerSol},
		{" 3 ", NativeDecimals, 3 * LamportsPerSol},
		{"42", 0, 42},
		{"18446744073.709551615", NativeDecimals, math.MaxUint64},
	} {
		actual, err := ToBaseUnits("amount", tc.amount, tc.decimals)
		require.NoError(t, err, tc.amount)
		assert.Equal(t, tc.expected, actual, tc.amount)
	}
}

func TestToBaseUnits_Invalid(t *testing.T) {
	for _, tc := range []struct {
		amount   string
		decimals uint8
	}{
		{"", NativeDecimals},
		{"abc", NativeDecimals},
		{"-1", NativeDecimals},
		{"1e9", NativeDecimals},
		{"1/2", NativeDecimals},
		{"1.2.3", NativeDecimals},
		{".", NativeDecimals},
		{"0.0000000001", NativeDecimals},
		{"1.5", 0},
		{"18446744073.709551616", NativeDecimals},
	} {
		_, err := ToBaseUnits("amount", tc.amount, tc.decimals)
		require.Error(t, err, tc.amount)

		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr), tc.amount)
		assert.Equal(t, "amount", validationErr.Field)
	}
}

func TestScaleSupply(t *testing.T) {
	for decimals := uint8(0); decimals <= MaxDecimals; decimals++ {
		expected := uint64(1_000_000)
		for i := uint8(0); i < decimals; i++ {
			expected *= 10
		}

		actual, err := ScaleSupply(1_000_000, decimals)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	actual, err := ScaleSupply(1_000_000, 9)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000_000_000, actual)

	_, err = ScaleSupply(math.MaxUint64, 1)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "supply", validationErr.Field)

	_, err = ScaleSupply(1, MaxDecimals+1)
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "decimals", validationErr.Field)
}

func TestFormatBaseUnits(t *testing.T) {
	assert.Equal(t, "1.500", FormatBaseUnits(1_500_000_000, NativeDecimals, 3))
	assert.Equal(t, "0.000", FormatBaseUnits(0, NativeDecimals, 3))
	assert.Equal(t, "0.001", FormatBaseUnits(1_000_000, NativeDecimals, 3))
	assert.Equal(t, "42", FormatBaseUnits(42, 0, 0))
}
