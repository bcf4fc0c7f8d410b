package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormattedUnitAmount(t *testing.T) {
	testCases := []struct {
		amount   *big.Int
		expected string
	}{
		{nil, "0"},
		{big.NewInt(0), "0"},
		{units(32), "32"},
		{units(1), "1"},
		{big.NewInt(27_896_982_400_000_000), "0.0278969824"},
		{big.NewInt(34_871_228_000_000_000), "0.034871228"},
		{new(big.Int).Add(units(2), big.NewInt(500_000_000_000_000_000)), "2.5"},
		{units(-3), "-3"},
		{big.NewInt(1), "0.000000000000000001"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FormattedUnitAmount(tc.amount))
	}
}

func TestParseUnitAmount(t *testing.T) {
	testCases := []struct {
		input    string
		expected *big.Int
	}{
		{"32", units(32)},
		{"0.034871228", big.NewInt(34_871_228_000_000_000)},
		{"2.5", new(big.Int).Add(units(2), big.NewInt(500_000_000_000_000_000))},
		{"-1", units(-1)},
		{".5", big.NewInt(500_000_000_000_000_000)},
	}
	for _, tc := range testCases {
		got, err := ParseUnitAmount(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, 0, tc.expected.Cmp(got), "input %q parsed to %s", tc.input, got)
	}

	for _, bad := range []string{"", "abc", "1.2.3", "1.0000000000000000001"} {
		_, err := ParseUnitAmount(bad)
		assert.Error(t, err, "input %q should not parse", bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, amount := range []*big.Int{
		units(32), big.NewInt(34_871_228_000_000_000), big.NewInt(1), units(0),
	} {
		parsed, err := ParseUnitAmount(FormattedUnitAmount(amount))
		require.NoError(t, err)
		assert.Equal(t, 0, amount.Cmp(parsed))
	}
}
