package codec

import (
	"fmt"
	"strings"
)

// cuitWeights are applied to the first ten digits of a CUIT.
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// CUITCheckDigit computes the modulus-11 verifier of the first ten digits.
func CUITCheckDigit(first10 string) (int, error) {
	if len(first10) != 10 {
		return 0, fmt.Errorf("check digit needs 10 digits, got %d", len(first10))
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := first10[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q at position %d", c, i+1)
		}
		sum += int(c-'0') * cuitWeights[i]
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		check = 9
	}
	return check, nil
}

// ValidateCUIT cleans a tax ID down to its digits and verifies length and
// check digit. It returns the 11-digit cleaned string.
func ValidateCUIT(raw string) (string, error) {
	clean := DigitsOnly(raw)
	if clean == "" {
		return "", fmt.Errorf("tax ID is required")
	}
	if len(clean) != 11 {
		return "", fmt.Errorf("tax ID must have 11 digits, got %d (%s)", len(clean), raw)
	}
	want, err := CUITCheckDigit(clean[:10])
	if err != nil {
		return "", err
	}
	if got := int(clean[10] - '0'); got != want {
		return "", fmt.Errorf("invalid tax ID %s: check digit is %d, expected %d", raw, got, want)
	}
	return clean, nil
}
