// Package dateutils parses the date notations found on bank statements.
package dateutils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date layouts used across the application.
const (
	DateLayoutISO     = "2006-01-02"
	DateLayoutDisplay = "02/01/2006"
	DateLayoutDotted  = "02.01.06"
)

// Epoch is returned for unparseable dates so that sorting stays total.
var Epoch = time.Unix(0, 0).UTC()

var (
	isoPattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	slashPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dotPattern   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2}|\d{4})$`)

	monthNamePattern = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+(\p{L}+)\.?\s+(\d{4})`)
	elidedDe         = regexp.MustCompile(`(?i)d['’]`)
)

// ParseDate recognizes, in order, YYYY-MM-DD, DD/MM/YYYY and DD.MM.YY(YY).
// Slash and dot dates must fall in [2000, 2100); two-digit years map to 20YY.
// Anything else yields Epoch.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		if t, ok := build(m[1], m[2], m[3], 0, 10000); ok {
			return t
		}
		return Epoch
	}
	if m := slashPattern.FindStringSubmatch(s); m != nil {
		if t, ok := build(m[3], m[2], m[1], 2000, 2100); ok {
			return t
		}
		return Epoch
	}
	if m := dotPattern.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		if t, ok := build(year, m[2], m[1], 2000, 2100); ok {
			return t
		}
	}
	return Epoch
}

// IsEpoch reports whether t is the unparseable-date sentinel.
func IsEpoch(t time.Time) bool {
	return t.Equal(Epoch)
}

func build(year, month, day string, minYear, maxYear int) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < minYear || y >= maxYear {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
}

// FormatDisplay renders t as dd/mm/yyyy.
func FormatDisplay(t time.Time) string {
	return t.Format(DateLayoutDisplay)
}

// ToISODate renders t as yyyy-mm-dd.
func ToISODate(t time.Time) string {
	return t.Format(DateLayoutISO)
}

// Catalan and Spanish month names and abbreviations.
var monthNames = map[string]int{
	"gen": 1, "gener": 1, "ene": 1, "enero": 1,
	"febr": 2, "febrer": 2, "feb": 2, "febrero": 2,
	"març": 3, "marz": 3, "mar": 3, "marzo": 3,
	"abr": 4, "abril": 4,
	"maig": 5, "may": 5, "mayo": 5,
	"juny": 6, "jun": 6, "junio": 6,
	"jul": 7, "juliol": 7, "julio": 7,
	"ag": 8, "agost": 8, "ago": 8, "agosto": 8,
	"set": 9, "setembre": 9, "sep": 9, "septiembre": 9,
	"oct": 10, "octubre": 10,
	"nov": 11, "novembre": 11, "noviembre": 11,
	"des": 12, "desembre": 12, "dic": 12, "diciembre": 12,
}

// MonthNumber resolves a Catalan or Spanish month name or abbreviation.
func MonthNumber(name string) (int, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSuffix(name, "."))]
	return m, ok
}

// NormalizeElision rewrites the Catalan elided "d'" into "de ".
func NormalizeElision(s string) string {
	return elidedDe.ReplaceAllString(s, "de ")
}

// ParseMonthNameDate converts "26 de des. 2025" or "27 d'oct. 2025" into
// "26/12/2025". It reports false when no known month name is found.
func ParseMonthNameDate(s string) (string, bool) {
	m := monthNamePattern.FindStringSubmatch(NormalizeElision(s))
	if m == nil {
		return "", false
	}
	month, ok := MonthNumber(m[2])
	if !ok {
		return "", false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return padTwo(day) + "/" + padTwo(month) + "/" + m[3], true
}

func padTwo(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// ExpandShortYear turns "31.12.25" into "31/12/2025". Other input is returned unchanged.
func ExpandShortYear(s string) string {
	m := dotPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	return m[1] + "/" + m[2] + "/" + year
}

// ISOToDisplay turns "2025-12-31" into "31/12/2025". Other input is returned unchanged.
func ISOToDisplay(s string) string {
	m := isoPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}
