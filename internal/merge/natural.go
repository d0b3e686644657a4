// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"cmp"
	"strings"
)

type chunk struct {
	text   string
	digits bool
}

// naturalKey splits s into runs of ASCII digits and non-digits.
func naturalKey(s string) []chunk {
	var key []chunk
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			key = append(key, chunk{text: s[start:i], digits: isDigit(s[start])})
			start = i
		}
	}
	return key
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// compare orders numbers by value, numbers before text, and text without
// regard to case.
func (c chunk) compare(o chunk) int {
	switch {
	case c.digits && o.digits:
		x, y := strings.TrimLeft(c.text, "0"), strings.TrimLeft(o.text, "0")
		if len(x) != len(y) {
			return cmp.Compare(len(x), len(y))
		}
		return strings.Compare(x, y)
	case c.digits:
		return -1
	case o.digits:
		return 1
	default:
		return strings.Compare(strings.ToLower(c.text), strings.ToLower(o.text))
	}
}

// compareNatural orders "feed2.pdf" before "feed10.pdf". Names that compare
// equal fall back to byte order.
func compareNatural(a, b string) int {
	ka, kb := naturalKey(a), naturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := ka[i].compare(kb[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(ka), len(kb)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
