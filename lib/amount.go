package lib

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

const (
	// MicroPerUnit is the number of micro-units in one unit of currency
	MicroPerUnit = 1_000_000
	// PPM is the parts-per-million denominator rates are expressed in
	PPM = 1_000_000
	// amountDecimals is the precision of the decimal representation
	amountDecimals = 6
)

// Amount is a fixed-point decimal balance counted in micro-units.
// It is signed because settlement does not re-check affordability and a balance may be overdrawn.
type Amount int64

// NewAmount() converts whole units into an Amount
func NewAmount(units int64) Amount { return Amount(units * MicroPerUnit) }

// ParseAmount() parses a decimal string like "78.18" or "-0.5"
func ParseAmount(s string) (Amount, ErrorI) {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0, ErrInvalidAmount(s)
	}
	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")
	whole, frac, _ := strings.Cut(str, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > amountDecimals || strings.ContainsAny(whole+frac, "+-") {
		return 0, ErrInvalidAmount(s)
	}
	frac += strings.Repeat("0", amountDecimals-len(frac))
	w, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, ErrInvalidAmount(s)
	}
	f, err := strconv.ParseUint(frac, 10, 63)
	if err != nil {
		return 0, ErrInvalidAmount(s)
	}
	if w > (math.MaxInt64-f)/MicroPerUnit {
		return 0, ErrInvalidAmount(s)
	}
	a := Amount(w*MicroPerUnit + f)
	if negative {
		a = -a
	}
	return a, nil
}

// MustParseAmount() panics on a malformed literal; for constants and tests
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String() prints the amount as a decimal with trailing zeros trimmed
func (a Amount) String() string {
	sign, v := "", uint64(a)
	if a < 0 {
		sign, v = "-", uint64(-a)
	}
	whole, frac := v/MicroPerUnit, v%MicroPerUnit
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	fs := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, fs)
}

// Float64() is a lossy view for display and metrics
func (a Amount) Float64() float64 { return float64(a) / MicroPerUnit }

// MulRate() returns floor(a * ppm / 1e6), computed without overflow
func (a Amount) MulRate(ppm uint64) Amount {
	r := new(big.Int).Mul(big.NewInt(int64(a)), new(big.Int).SetUint64(ppm))
	return Amount(r.Quo(r, big.NewInt(PPM)).Int64())
}

// MarshalJSON() writes the amount as a JSON number in decimal form
func (a Amount) MarshalJSON() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalJSON() accepts a JSON number or a quoted decimal string
func (a *Amount) UnmarshalJSON(bz []byte) error {
	s := strings.Trim(string(bz), `"`)
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Rates holds the per-transaction tax and fee rates in parts-per-million
type Rates struct {
	TaxPPM uint64 `json:"taxPPM"`
	FeePPM uint64 `json:"feePPM"`
}

// RateToPPM() converts a decimal rate (e.g. 0.09) into parts-per-million
func RateToPPM(rate float64) uint64 {
	if rate <= 0 {
		return 0
	}
	return uint64(math.Round(rate * PPM))
}

// Accounts maps an account id to its balance
type Accounts map[string]Amount

// Copy() returns an independent copy of the mapping
func (a Accounts) Copy() Accounts {
	cp := make(Accounts, len(a))
	for k, v := range a {
		cp[k] = v
	}
	return cp
}

// Total() sums every balance
func (a Accounts) Total() (total Amount) {
	for _, v := range a {
		total += v
	}
	return
}

// IDs() returns the account ids sorted lexicographically
func (a Accounts) IDs() []string {
	ids := make([]string, 0, len(a))
	for k := range a {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

// Equals() compares two mappings key by key
func (a Accounts) Equals(b Accounts) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
