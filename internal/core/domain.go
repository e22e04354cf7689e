package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

const maxDescriptionLen = 200

type (
	Date struct {
		time.Time
	}

	// Entry is a single income record.
	Entry struct {
		ID          int64
		Description string
		Amount      decimal.Decimal
		Date        Date
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("parse date", fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding with the date-only layout.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return Invalid("parse date", "date must be a string in YYYY-MM-DD format")
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewEntry builds an unsaved entry.
func NewEntry(description string, amount decimal.Decimal, date Date) Entry {
	return Entry{
		Description: description,
		Amount:      amount,
		Date:        date,
	}
}

// DescriptionKey folds a description for case-insensitive matching. The fold
// is full Unicode, so "Salário" and "SALÁRIO" share a key. Stores persist it
// next to the description and match on it.
func DescriptionKey(description string) string {
	return cases.Fold().String(description)
}

// IsNew reports whether the entry has not been assigned an id by a store.
func (e Entry) IsNew() bool {
	return e.ID == 0
}

func (e Entry) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}
