// Package cpf formats and validates Brazilian taxpayer IDs (Cadastro de
// Pessoa Física). Both functions accept arbitrary input, including partially
// typed values with punctuation, and never fail.
package cpf

import "strings"

// Length is the number of digits in a complete CPF.
const Length = 11

// Strip returns only the ASCII digits of s, in order.
func Strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Format renders s in the 000.000.000-00 display form. Incomplete input is
// formatted as far as it goes, so it can be applied on every keystroke.
// Digits past the eleventh are dropped.
func Format(s string) string {
	d := Strip(s)
	if len(d) > Length {
		d = d[:Length]
	}
	if len(d) <= 3 {
		return d
	}

	var b strings.Builder
	b.Grow(len(d) + 3)
	for i := 0; i < len(d); i++ {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}

// Validate reports whether s carries a well-formed CPF: eleven digits once
// punctuation is removed, not a single repeated digit, and both check digits
// matching.
func Validate(s string) bool {
	d := Strip(s)
	if len(d) != Length {
		return false
	}
	if strings.Count(d, d[:1]) == Length {
		return false
	}
	return checkDigit(d[:9]) == int(d[9]-'0') &&
		checkDigit(d[:10]) == int(d[10]-'0')
}

// checkDigit computes the verifier for the given prefix. Weights run from
// len(prefix)+1 down to 2.
func checkDigit(prefix string) int {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
	}
	rev := 11 - sum%11
	if rev >= 10 {
		return 0
	}
	return rev
}
