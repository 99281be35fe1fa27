// Package format renders currency and rates for people.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	digits := groupDigits(math.Abs(amount))
	if amount < 0 && digits != "0.00" {
		return "-$" + digits
	}
	return "$" + digits
}

// Percent renders an annual rate such as 0.065 as "6.50%".
func Percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// MoneyFactor renders a lease money factor with enough precision to be useful, e.g. "0.0000208".
func MoneyFactor(mf float64) string {
	return fmt.Sprintf("%.7f", mf)
}

func groupDigits(value float64) string {
	whole, cents, _ := strings.Cut(fmt.Sprintf("%.2f", value), ".")
	if len(whole) <= 3 {
		return whole + "." + cents
	}

	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return b.String() + "." + cents
}
