package algorand

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency codes accepted for tips.
const (
	CurrencyALGO = "ALGO"
	CurrencyUSDC = "USDC"
)

// USDCAssetID is the mainnet ASA id of Circle's USDC.
const USDCAssetID uint64 = 31566704

// Currency describes a tippable asset. Amounts are held in base units.
type Currency struct {
	Code      string
	Name      string
	AssetID   uint64
	Decimals  int
	MinAmount uint64
	Presets   []uint64
}

// Native reports whether the currency is the chain's native ALGO.
func (c Currency) Native() bool { return c.AssetID == 0 }

// Format renders base units as a decimal string.
func (c Currency) Format(amount uint64) string { return FormatAmount(amount, c.Decimals) }

// Parse converts a decimal string into base units.
func (c Currency) Parse(s string) (uint64, error) { return ParseAmount(s, c.Decimals) }

var currencies = map[string]Currency{
	CurrencyALGO: {
		Code:      CurrencyALGO,
		Name:      "Algorand",
		Decimals:  6,
		MinAmount: 100_000,
		Presets:   []uint64{1_000_000, 5_000_000, 10_000_000, 25_000_000},
	},
	CurrencyUSDC: {
		Code:      CurrencyUSDC,
		Name:      "USD Coin",
		AssetID:   USDCAssetID,
		Decimals:  6,
		MinAmount: 100_000,
		Presets:   []uint64{1_000_000, 5_000_000, 10_000_000, 25_000_000},
	},
}

// LookupCurrency returns the currency for a code, case-insensitively.
func LookupCurrency(code string) (Currency, bool) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Currencies lists the supported currencies, ALGO first.
func Currencies() []Currency {
	return []Currency{currencies[CurrencyALGO], currencies[CurrencyUSDC]}
}

// ParseAmount converts a non-negative decimal string into base units with
// the given number of decimals. Excess precision is rejected, not rounded.
func ParseAmount(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && frac == "" {
		return 0, fmt.Errorf("amount %q is malformed", s)
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("amount %q is malformed", s)
			}
		}
	}
	frac += strings.Repeat("0", decimals-len(frac))
	v, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string with trailing zeros trimmed.
func FormatAmount(amount uint64, decimals int) string {
	if decimals == 0 {
		return strconv.FormatUint(amount, 10)
	}
	s := strconv.FormatUint(amount, 10)
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
