package validate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Add appends every non-nil field error.
func (e *Errs) Add(fs ...*ErrField) {
	for _, f := range fs {
		if f != nil {
			*e = append(*e, *f)
		}
	}
}

// Err returns nil when nothing was collected.
func (e Errs) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func UUID(field, value string) *ErrField {
	if _, err := uuid.Parse(value); err != nil {
		return &ErrField{Field: field, Msg: "must be a uuid"}
	}
	return nil
}

func MinLen(field, value string, n int) *ErrField {
	if len(strings.TrimSpace(value)) < n {
		return &ErrField{Field: field, Msg: "too short"}
	}
	return nil
}

const (
	// MoneyIntDigits and MoneyScale mirror the NUMERIC(18,2) amount columns.
	MoneyIntDigits = 16
	MoneyScale     = 2

	// Widest coefficient and finest exponent accepted before any rescaling happens.
	maxCoefficientBits = 128
	minExponent        = -18
)

// Money requires a positive amount with at most two fractional digits that fits the
// amount columns. The range is checked on the raw exponent and coefficient first, so
// inputs such as 1e99999999 are rejected without being rescaled.
func Money(field string, v decimal.Decimal) *ErrField {
	if v.Sign() <= 0 {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	if !MoneyInRange(v) {
		return &ErrField{Field: field, Msg: "out of range"}
	}
	if !v.Equal(v.Round(MoneyScale)) {
		return &ErrField{Field: field, Msg: "at most 2 decimal places"}
	}
	return nil
}

// MoneyInRange reports whether v has at most MoneyIntDigits integer digits. It never
// rescales v.
func MoneyInRange(v decimal.Decimal) bool {
	exp := v.Exponent()
	if exp < minExponent || exp > MoneyIntDigits {
		return false
	}
	coef := v.Coefficient()
	if coef.BitLen() > maxCoefficientBits {
		return false
	}
	digits := len(coef.Text(10))
	if coef.Sign() < 0 {
		digits--
	}
	return digits+int(exp) <= MoneyIntDigits
}

func NotAfter(field string, v decimal.Decimal, limitField string, limit decimal.Decimal) *ErrField {
	if v.GreaterThan(limit) {
		return &ErrField{Field: field, Msg: "must be <= " + limitField}
	}
	return nil
}

func Before(field string, start time.Time, endField string, end time.Time) *ErrField {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return &ErrField{Field: endField, Msg: "must be after " + field}
	}
	return nil
}
