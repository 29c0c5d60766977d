package lib

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		input    string
		expected Amount
		error    string
	}{
		{
			name:     "whole",
			detail:   "a whole number of units",
			input:    "100",
			expected: 100 * MicroPerUnit,
		},
		{
			name:     "fraction",
			detail:   "a decimal with two places",
			input:    "78.18",
			expected: 78_180_000,
		},
		{
			name:     "micro",
			detail:   "the smallest representable amount",
			input:    "0.000001",
			expected: 1,
		},
		{
			name:     "leading dot",
			detail:   "an omitted whole part is zero",
			input:    ".5",
			expected: 500_000,
		},
		{
			name:     "negative",
			detail:   "overdrawn balances are representable",
			input:    "-1.5",
			expected: -1_500_000,
		},
		{
			name:   "too precise",
			detail: "more than six decimals cannot be represented",
			input:  "0.0000001",
			error:  "invalid amount",
		},
		{
			name:   "garbage",
			detail: "non numeric input",
			input:  "abc",
			error:  "invalid amount",
		},
		{
			name:   "empty",
			detail: "an empty string",
			input:  "",
			error:  "invalid amount",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseAmount(test.input)
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, got)
		})
	}
}

func TestAmountString(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		amount   Amount
		expected string
	}{
		{name: "zero", detail: "zero prints without decimals", amount: 0, expected: "0"},
		{name: "whole", detail: "trailing zeros are trimmed", amount: NewAmount(70), expected: "70"},
		{name: "fraction", detail: "two decimals", amount: 78_180_000, expected: "78.18"},
		{name: "fee", detail: "a small fee", amount: 20_000, expected: "0.02"},
		{name: "negative", detail: "a negative fraction", amount: -500_000, expected: "-0.5"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, test.amount.String())
			// the printed form parses back to the same amount
			parsed, err := ParseAmount(test.expected)
			require.NoError(t, err)
			require.Equal(t, test.amount, parsed)
		})
	}
}

func TestAmountMulRate(t *testing.T) {
	rates := DefaultConsensusConfig().Rates()
	amount := NewAmount(20)
	require.Equal(t, MustParseAmount("1.8"), amount.MulRate(rates.TaxPPM))
	require.Equal(t, MustParseAmount("0.02"), amount.MulRate(rates.FeePPM))
	// floors toward zero at micro-unit precision
	require.Equal(t, Amount(0), Amount(999).MulRate(rates.FeePPM))
	// large amounts do not overflow the intermediate product
	big := Amount(9_000_000_000_000_000)
	require.Equal(t, Amount(810_000_000_000_000), big.MulRate(rates.TaxPPM))
}

func TestAmountJSON(t *testing.T) {
	accounts := Accounts{"alice": MustParseAmount("78.18"), "bob": NewAmount(70)}
	bz, err := json.Marshal(accounts)
	require.NoError(t, err)
	require.JSONEq(t, `{"alice":78.18,"bob":70}`, string(bz))
	got := Accounts{}
	require.NoError(t, json.Unmarshal(bz, &got))
	require.True(t, accounts.Equals(got))
	// quoted decimals are accepted too
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"0.02"`), &a))
	require.Equal(t, Amount(20_000), a)
}

func TestAccounts(t *testing.T) {
	accounts := Accounts{"b": NewAmount(2), "a": NewAmount(1), "c": NewAmount(-1)}
	require.Equal(t, NewAmount(2), accounts.Total())
	require.Equal(t, []string{"a", "b", "c"}, accounts.IDs())
	// copies are independent
	cp := accounts.Copy()
	cp["a"] = 0
	require.Equal(t, NewAmount(1), accounts["a"])
	require.False(t, accounts.Equals(cp))
}
