package billing

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// parseDecimal reads the longest leading decimal number from raw, the way a
// cashier's free-text field is usually interpreted: "12", " 12.5 ", "3pcs"
// and "1e2" all parse, while "", "abc" and "." yield NaN.
func parseDecimal(raw string) float64 {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	if s == "" {
		return math.NaN()
	}

	end := 0
	if s[end] == '+' || s[end] == '-' {
		end++
	}
	if strings.HasPrefix(s[end:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		expDigits := exp
		for expDigits < len(s) && isDigit(s[expDigits]) {
			expDigits++
		}
		if expDigits > exp {
			end = expDigits
		}
	}

	// The prefix is well-formed, so the only possible error is a range error,
	// for which ParseFloat already returns ±Inf or 0.
	value, _ := strconv.ParseFloat(s[:end], 64)
	return value
}

// parseDiscount treats anything unparsable as no discount.
func parseDiscount(raw string) float64 {
	value := parseDecimal(raw)
	if math.IsNaN(value) {
		return 0
	}
	return value
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
