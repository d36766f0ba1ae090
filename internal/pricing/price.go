package pricing

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every displayed amount.
const CurrencySymbol = "৳"

// MaxUnitPrice is the largest unit price accepted from a display string.
// Together with the cart's line quantity cap it keeps totals far from int64
// overflow.
const MaxUnitPrice int64 = 1_000_000_000

var printer = message.NewPrinter(language.English)

// ParseDisplayPrice turns a display price such as "৳ 12,500" into 12500.
// Every non-digit is dropped; anything unparsable or above MaxUnitPrice
// yields 0.
func ParseDisplayPrice(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || n > MaxUnitPrice {
		return 0
	}
	return n
}

// FormatAmount renders n for display, e.g. 1500 -> "৳1,500".
func FormatAmount(n int64) string {
	if n < 0 {
		return "-" + CurrencySymbol + printer.Sprintf("%d", -n)
	}
	return CurrencySymbol + printer.Sprintf("%d", n)
}
