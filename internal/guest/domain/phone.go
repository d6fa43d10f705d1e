package domain

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone formats raw as E.164. Numbers without a country prefix are
// read in defaultRegion. Blank input yields nil.
func NormalizePhone(raw, defaultRegion string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	number, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return nil, ErrInvalidPhone
	}
	if !phonenumbers.IsPossibleNumber(number) {
		return nil, ErrInvalidPhone
	}

	formatted := phonenumbers.Format(number, phonenumbers.E164)
	return &formatted, nil
}
