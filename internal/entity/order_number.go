package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Period is the (month, year) scope within which order numbers are issued
// sequentially. Numbers from different periods may share numeric prefixes.
type Period struct {
	Month time.Month
	Year  int
}

// PeriodOf derives the issuing period from a timestamp.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// String renders the period the way it appears inside order numbers, e.g. "6/2024".
func (p Period) String() string {
	return fmt.Sprintf("%d/%d", int(p.Month), p.Year)
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

var orderNumberPattern = regexp.MustCompile(`^(\d{4,})/(\d{1,2})/(\d{4})$`)

// FormatOrderNumber renders a sequence value as the human-readable token
// NNNN/M/YYYY, zero-padding the prefix to four digits.
func FormatOrderNumber(seq int64, p Period) string {
	return fmt.Sprintf("%04d/%d/%d", seq, int(p.Month), p.Year)
}

// ParseOrderNumber splits a token of the form NNNN/M/YYYY into its sequence
// value and period. ok is false for tokens that do not match the pattern.
func ParseOrderNumber(token string) (seq int64, p Period, ok bool) {
	m := orderNumberPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, Period{}, false
	}
	seq, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, Period{}, false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil || month < 1 || month > 12 {
		return 0, Period{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, Period{}, false
	}
	return seq, Period{Month: time.Month(month), Year: year}, true
}

// OrderSequence is the per-period counter row backing order number issuance.
// It replaces the legacy max-scan so concurrent reservations cannot overlap.
type OrderSequence struct {
	bun.BaseModel `bun:"table:order_sequences"`

	Month     int       `bun:"month,pk"`
	Year      int       `bun:"year,pk"`
	LastValue int64     `bun:"last_value"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
