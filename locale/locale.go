// Package locale holds the read-only, locale-keyed tables the lexer
// and number/date functions consult: decimal and argument separators,
// and month/day name vectors. It is a collaborator, not a formula
// engine concern — the engine only ever reads from it.
package locale

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Locale is one locale's formula-syntax and calendar conventions.
type Locale struct {
	Tag               language.Tag
	DecimalSeparator  byte
	ThousandsSep      byte
	ArgumentSeparator byte // ',' normally; ';' when DecimalSeparator is ','
	Months            []string
	MonthsShort       []string
	MonthsLetter      []string
	Days              []string
	DaysShort         []string
}

// US is the default en-US locale: '.' decimal, ',' argument separator.
var US = Locale{
	Tag:               language.AmericanEnglish,
	DecimalSeparator:  '.',
	ThousandsSep:      ',',
	ArgumentSeparator: ',',
	Months: []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	MonthsShort: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	MonthsLetter: []string{"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"},
	Days:         []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	DaysShort:    []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
}

// DE is de-DE: ',' decimal separator, so the argument separator
// becomes ';' to avoid ambiguity with the decimal comma — the classic
// "SUMME(1,5;2,5)" formula-locale distinction.
var DE = Locale{
	Tag:               language.German,
	DecimalSeparator:  ',',
	ThousandsSep:      '.',
	ArgumentSeparator: ';',
	Months: []string{"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember"},
	MonthsShort: []string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"},
	MonthsLetter: []string{"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"},
	Days:         []string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
	DaysShort:    []string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
}

var byTag = map[string]*Locale{
	"en-US": &US,
	"de-DE": &DE,
}

// ByID looks up a locale by BCP-47 id, falling back to US.
func ByID(id string) *Locale {
	if l, ok := byTag[id]; ok {
		return l
	}
	return &US
}

var foldCaser = cases.Fold()

// EqualFold reports whether a and b are equal under Unicode case
// folding — used for ASCII-insensitive sheet-name comparisons
// (invariant 3.2.1 requires ASCII case-folding specifically, which
// Unicode folding subsumes for the Latin-script sheet names this
// engine expects).
func EqualFold(a, b string) bool {
	return foldCaser.String(a) == foldCaser.String(b)
}
