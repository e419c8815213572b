// Package barcode normalizes scanned product codes before lookup.
package barcode

import (
	"regexp"
	"strings"
)

var (
	separatorRe      = regexp.MustCompile(`[\s-]`)
	digitsRe         = regexp.MustCompile(`^[0-9]+$`)
	placeholderRe    = regexp.MustCompile(`^0+$`)
	variableWeightRe = regexp.MustCompile(`^2[0-9]`) // EAN-13 prefix 20-29
)

// Normalize returns the canonical EAN-13 form of a numeric code.
// UPC-A codes get a leading zero. Placeholder codes, variable-weight codes and
// EAN-13 codes with a bad check digit normalize to "". Other lengths are
// returned unchanged since they may be internal codes.
func Normalize(code string) string {
	bc := separatorRe.ReplaceAllString(code, "")
	if bc == "" || !digitsRe.MatchString(bc) {
		return ""
	}

	if placeholderRe.MatchString(bc) {
		return ""
	}

	if len(bc) == 13 && variableWeightRe.MatchString(bc) {
		return ""
	}

	if len(bc) == 12 {
		bc = "0" + bc
	}

	if len(bc) != 13 {
		return bc
	}

	if !ValidEAN13(bc) {
		return ""
	}
	return bc
}

// ValidEAN13 checks the EAN-13 check digit.
func ValidEAN13(bc string) bool {
	if len(bc) != 13 || !digitsRe.MatchString(bc) {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(bc[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	checkDigit := (10 - (sum % 10)) % 10
	return int(bc[12]-'0') == checkDigit
}

// Candidates returns the codes to try, in order, when looking a product up:
// the trimmed code as scanned, then its normalized form when that differs.
// Codes containing anything but digits, spaces and hyphens are used verbatim.
func Candidates(code string) []string {
	raw := strings.TrimSpace(code)
	if raw == "" {
		return nil
	}

	normalized := Normalize(raw)
	if normalized == "" || normalized == raw {
		return []string{raw}
	}
	return []string{raw, normalized}
}
