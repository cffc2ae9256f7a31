// Package entropy implements Shannon entropy and the statistical thresholds
// used to decide when a token is random enough to be a secret.
package entropy

import "math"

// Shannon returns the Shannon entropy of s in bits per character.
// Characters are counted per rune.
func Shannon(s string) float64 {
	if s == "" {
		return 0
	}

	freq := make(map[rune]int)
	n := 0
	for _, c := range s {
		freq[c]++
		n++
	}
	if len(freq) == 1 {
		return 0
	}

	length := float64(n)
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Class is a coarse alphabet category for a token.
type Class string

const (
	Alpha        Class = "alpha"
	AlphaCase    Class = "alphaCase"
	Hex          Class = "hex"
	AlphaNum     Class = "alphaNum"
	AlphaNumCase Class = "alphaNumCase"
)

// Classes lists every class in precedence order.
var Classes = []Class{Alpha, AlphaCase, Hex, AlphaNum, AlphaNumCase}

// Alphabet returns the characters random strings of class c are drawn from
// when the threshold table is generated.
func (c Class) Alphabet() string {
	switch c {
	case Alpha:
		return "abcdefghijklmnopqrstuvwxyz"
	case AlphaCase:
		return "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	case Hex:
		return "ABCDEF0123456789"
	case AlphaNum:
		return "abcdefghijklmnopqrstuvwxyz0123456789"
	default:
		return "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	}
}

// Classify derives the class of an alphanumeric token:
// single-case letters are alpha, mixed-case letters alphaCase, hex digits of
// one case hex, single-case alphanumerics alphaNum, anything else alphaNumCase.
func Classify(token string) Class {
	var upper, lower, digit, other bool
	hexUpper, hexLower := true, true
	for _, c := range token {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
			if c > 'F' {
				hexUpper = false
			}
			hexLower = false
		case c >= 'a' && c <= 'z':
			lower = true
			if c > 'f' {
				hexLower = false
			}
			hexUpper = false
		case c >= '0' && c <= '9':
			digit = true
		default:
			other = true
		}
	}

	letters := upper || lower
	switch {
	case other || token == "":
		return AlphaNumCase
	case letters && !digit && upper != lower:
		return Alpha
	case letters && !digit:
		return AlphaCase
	case hexUpper || hexLower:
		return Hex
	case upper != lower:
		return AlphaNum
	default:
		return AlphaNumCase
	}
}
