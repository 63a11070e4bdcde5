// Package naturalsort orders strings the way people expect file names with
// embedded numbers to sort: "ch9" before "ch10", "Vol 2" before "Vol 11".
package naturalsort

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to,
// or after b.
//
// Digit runs are compared by value (leading zeros stripped, then length, then
// digits), falling back to the raw run length so "1" sorts before "01".
// Everything else is compared case-insensitively rune by rune, and a string
// that is a prefix of the other sorts first. Strings that are equal under
// those rules are ordered ordinally, so Compare is a strict total order.
func Compare(a, b string) int {
	if c := compareFolded(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Strings sorts s in place in natural order.
func Strings(s []string) {
	sort.SliceStable(s, func(i, j int) bool { return Less(s[i], s[j]) })
}

// Sort sorts items in place in natural order of the key returned for each item.
func Sort[T any](items []T, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool { return Less(key(items[i]), key(items[j])) })
}

func compareFolded(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ei := digitRunEnd(a, i)
			ej := digitRunEnd(b, j)
			if c := compareDigitRuns(a[i:ei], b[j:ej]); c != 0 {
				return c
			}
			i, j = ei, ej
			continue
		}

		ra, sa := utf8.DecodeRuneInString(a[i:])
		rb, sb := utf8.DecodeRuneInString(b[j:])
		la, lb := unicode.ToLower(ra), unicode.ToLower(rb)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		i += sa
		j += sb
	}

	switch {
	case i == len(a) && j == len(b):
		return 0
	case i == len(a):
		return -1
	default:
		return 1
	}
}

func compareDigitRuns(x, y string) int {
	sx := strings.TrimLeft(x, "0")
	sy := strings.TrimLeft(y, "0")

	if len(sx) != len(sy) {
		return sign(len(sx) - len(sy))
	}
	if c := strings.Compare(sx, sy); c != 0 {
		return c
	}
	return sign(len(x) - len(y))
}

func digitRunEnd(s string, start int) int {
	end := start
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	return end
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
