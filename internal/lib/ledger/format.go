package ledger

import (
	"fmt"
	"math/big"
	"strings"
)

// FormattedUnitAmount renders base units as a decimal staking-unit string,
// trimming trailing zeros - ie: 32000000000000000000 -> "32",
// 27896982400000000 -> "0.0278969824".
func FormattedUnitAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	abs := new(big.Int).Abs(amount)
	q, r := new(big.Int).QuoRem(abs, UnitScale, new(big.Int))
	var sign string
	if amount.Sign() < 0 {
		sign = "-"
	}
	if r.Sign() == 0 {
		return sign + q.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%018s", r.String()), "0")
	return fmt.Sprintf("%s%s.%s", sign, q.String(), frac)
}

// ParseUnitAmount parses a decimal staking-unit string ("32", "0.034871228")
// into base units.
func ParseUnitAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx != -1 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("amount %q has more than 18 decimal places", s)
	}
	// right-pad the fraction to 18 digits so whole+frac is a base-unit integer
	frac += strings.Repeat("0", 18-len(frac))

	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		amount.Neg(amount)
	}
	return amount, nil
}
