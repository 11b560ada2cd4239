// Package numfmt formats counters for dashboard cards.
package numfmt

import (
	"strconv"
)

// Compact renders n with a K suffix at or above one thousand and an M
// suffix at or above one million, keeping one decimal place when it is
// non-zero: 950 → "950", 1500 → "1.5K", 12000 → "12K", 2500000 → "2.5M".
// Every int64 is accepted, including math.MinInt64.
func Compact(n int64) string {
	neg := n < 0
	// uint64(-n) wraps to the right magnitude for math.MinInt64 too.
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}

	var s string
	switch {
	case u >= 999_950:
		// 999_950 and up would round to "1000K".
		s = scaled(u, 1_000_000) + "M"
	case u >= 1_000:
		s = scaled(u, 1_000) + "K"
	default:
		s = strconv.FormatUint(u, 10)
	}

	if neg {
		return "-" + s
	}
	return s
}

// scaled divides u by unit rounding to one decimal, then drops ".0".
// Only the remainder is multiplied, so nothing overflows.
func scaled(u, unit uint64) string {
	whole, rem := u/unit, u%unit
	tenths := (rem*10 + unit/2) / unit
	if tenths == 10 {
		whole++
		tenths = 0
	}
	s := strconv.FormatUint(whole, 10)
	if tenths != 0 {
		s += "." + strconv.FormatUint(tenths, 10)
	}
	return s
}
