// Package normalize canonicalizes raw cell values into comparable forms.
//
// All three normalizers are pure functions over strings:
//   - ParseDate accepts the date layouts seen in ledger and statement feeds
//     and collapses them to a UTC calendar day (time-of-day discarded).
//   - ParseAmount parses currency-formatted strings into exact decimals.
//     Money never touches float64; cumulative rounding drift across thousands
//     of comparisons is not acceptable in a reconciliation engine.
//   - Reference folds case, collapses whitespace runs and strips punctuation
//     so that "ABC-123 / x" and "abc123 x" compare equal.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedDate is returned when no known layout parses the input.
	ErrMalformedDate = errors.New("malformed date")

	// ErrMalformedAmount is returned for unparseable or ambiguous amounts.
	ErrMalformedAmount = errors.New("malformed amount")
)

// dateLayouts are tried in order. Day-first layouts come before month-first
// because the statement feeds this engine was built for use day-first dates;
// an unambiguous ISO date always wins because it is tried first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"20060102",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses raw into a UTC calendar day.
// The time-of-day component of any layout that carries one is discarded.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedDate)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// currencyRunes are stripped before amount parsing.
const currencyRunes = "R$€£¥"

// ParseAmount parses a currency-formatted string into an exact decimal.
//
// Accepted shapes: "1234.56", "1,234.56", "1.234,56", "R 1 234,56",
// "(100.00)" for negatives, and a leading or trailing minus sign.
// A string where the thousands/decimal separator roles cannot be decided
// (for example "1,23,45") fails with ErrMalformedAmount rather than
// guessing.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrMalformedAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(strings.Trim(s, currencyRunes))
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = s[:len(s)-1]
	}
	// Spaces inside the number are thousands padding ("1 234,56").
	s = strings.ReplaceAll(s, " ", "")
	s = strings.Trim(s, currencyRunes)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}

	canonical, err := resolveSeparators(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", err, raw)
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// resolveSeparators rewrites s into plain "digits[.digits]" form, deciding
// which of '.' and ',' is the decimal separator.
//
// Rules:
//   - Both present: the one occurring last is decimal; the other must form
//     valid groups of three.
//   - Only ',' present once: decimal if followed by 1-2 digits, thousands if
//     followed by exactly 3.
//   - Only ',' present several times: thousands, groups of three required.
//   - Only '.' present once: decimal (the conventional reading).
//   - Only '.' present several times: thousands, groups of three required.
//
// Anything else is ambiguous and rejected.
func resolveSeparators(s string) (string, error) {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return "", ErrMalformedAmount
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		var thousands, dec byte
		if lastDot > lastComma {
			thousands, dec = ',', '.'
		} else {
			thousands, dec = '.', ','
		}
		intPart := s[:max(lastDot, lastComma)]
		if !validGroups(intPart, thousands) {
			return "", ErrMalformedAmount
		}
		cleaned := strings.ReplaceAll(s, string(thousands), "")
		return strings.ReplaceAll(cleaned, string(dec), "."), nil

	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			frac := s[lastComma+1:]
			if len(frac) == 3 {
				// "1,234" reads as one thousand two hundred thirty four.
				return strings.ReplaceAll(s, ",", ""), nil
			}
			if len(frac) >= 1 && len(frac) <= 2 {
				return strings.ReplaceAll(s, ",", "."), nil
			}
			return "", ErrMalformedAmount
		}
		if !validGroups(s, ',') {
			return "", ErrMalformedAmount
		}
		return strings.ReplaceAll(s, ",", ""), nil

	case lastDot >= 0:
		if strings.Count(s, ".") == 1 {
			return s, nil
		}
		if !validGroups(s, '.') {
			return "", ErrMalformedAmount
		}
		return strings.ReplaceAll(s, ".", ""), nil

	default:
		return s, nil
	}
}

// validGroups reports whether every separator-delimited group after the first
// in s has exactly three digits (standard thousands grouping).
func validGroups(s string, sep byte) bool {
	parts := strings.Split(s, string(sep))
	if len(parts) == 1 {
		return true
	}
	if parts[0] == "" || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// DefaultPunctuation is the reference punctuation stripped when no custom set
// is configured.
const DefaultPunctuation = ".,;:-_/\\'\"()[]{}#*&"

// Reference canonicalizes a raw reference string: lower case, punctuation in
// strip removed, whitespace runs collapsed to single spaces, trimmed.
func Reference(raw, strip string) string {
	if strip == "" {
		strip = DefaultPunctuation
	}
	var b strings.Builder
	b.Grow(len(raw))
	lastSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(raw) {
		if strings.ContainsRune(strip, r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// TrailingToken extracts the final alphanumeric token of a normalized
// reference, used by auxiliary reference-extraction passes. Returns "" when
// the reference is empty.
func TrailingToken(ref string) string {
	ref = strings.TrimRight(ref, " ")
	if ref == "" {
		return ""
	}
	i := strings.LastIndexByte(ref, ' ')
	return ref[i+1:]
}
