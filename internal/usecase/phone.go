package usecase

import "strings"

type PhoneNormalizer struct {
	CountryCode string
}

// Normalize turns a raw phone string into a digits-only WhatsApp address.
// Ten digit local numbers and trunk-prefixed (0 + ten digits) numbers get the
// country code; anything else is assumed to be international already.
func (n PhoneNormalizer) Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return "", false
	case len(digits) == 10:
		return n.CountryCode + digits, true
	case len(digits) == 11 && digits[0] == '0' && digits[1] != '0':
		return n.CountryCode + digits[1:], true
	default:
		return digits, true
	}
}
