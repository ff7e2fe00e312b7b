// Package pairing validates phone numbers for pairing-code login and formats
// the codes returned by the gateway.
package pairing

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// ErrInvalidNumber is returned when a number has no known country calling code.
var ErrInvalidNumber = errors.New("start with your country's calling code, example: 62xxx")

// Pending is the transient state of an interactive pairing-code login.
type Pending struct {
	Phone string
	Code  string
}

// Display returns the code grouped for entry on the remote device.
func (p Pending) Display() string {
	return FormatCode(p.Code)
}

// Normalize strips everything that is not a digit.
func Normalize(number string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
}

// Validate normalizes number and checks it against the country calling codes.
// The normalized number is returned on success.
func Validate(number string) (string, error) {
	phone := Normalize(number)
	if phone == "" {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidNumber, number)
	}
	if phone[0] == '1' {
		if isNANP(phone) {
			return phone, nil
		}
		return "", fmt.Errorf("%w (got %q)", ErrInvalidNumber, number)
	}
	_, ok := lo.Find(callingCodes, func(code string) bool {
		return strings.HasPrefix(phone, code)
	})
	if !ok || len(phone) > 15 {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidNumber, number)
	}
	return phone, nil
}

// isNANP reports whether phone is a complete North American number: 1, a
// three-digit area code starting 2-9, then seven digits.
func isNANP(phone string) bool {
	return len(phone) == 11 && phone[1] >= '2' && phone[1] <= '9'
}

// FormatCode splits an ungrouped code into dash-separated groups of four.
// Codes that already contain a separator are returned unchanged.
func FormatCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.ContainsFunc(code, func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	}) {
		return code
	}
	return strings.Join(lo.ChunkString(code, 4), "-")
}
