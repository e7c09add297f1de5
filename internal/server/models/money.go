package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor units (pence/cents). All schedule arithmetic
// is done on Money so reconciliation is exact.
type Money int64

// Quantity is a line-item quantity with two implied decimals (150 == 1.50).
type Quantity int64

var ErrInvalidAmount = errors.New("invalid amount")

// ParseMoney parses "1234", "1234.5" or "-1234.56".
func ParseMoney(s string) (Money, error) {
	v, err := parseFixed2(s)
	return Money(v), err
}

// ParseQuantity parses a quantity with at most two decimals.
func ParseQuantity(s string) (Quantity, error) {
	v, err := parseFixed2(s)
	return Quantity(v), err
}

// Cents builds a Money from whole currency units and minor units.
func Cents(units, cents int64) Money {
	if units < 0 {
		return Money(units*100 - cents)
	}
	return Money(units*100 + cents)
}

// Percent returns p percent of m rounded half away from zero to the cent.
func (m Money) Percent(p int64) Money {
	return Money(roundDiv(int64(m)*p, 100))
}

func (m Money) String() string { return formatFixed2(int64(m)) }

func (m Money) MarshalJSON() ([]byte, error) { return []byte(m.String()), nil }

func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := ParseMoney(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	v, err := scanFixed2(src)
	if err != nil {
		return err
	}
	*m = Money(v)
	return nil
}

// Value implements driver.Valuer; NUMERIC accepts the decimal text form.
func (m Money) Value() (driver.Value, error) { return m.String(), nil }

// Float is for display only.
func (m Money) Float() float64 { return float64(m) / 100 }

func (q Quantity) String() string { return formatFixed2(int64(q)) }

func (q Quantity) MarshalJSON() ([]byte, error) { return []byte(q.String()), nil }

func (q *Quantity) UnmarshalJSON(b []byte) error {
	v, err := ParseQuantity(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

func (q *Quantity) Scan(src any) error {
	v, err := scanFixed2(src)
	if err != nil {
		return err
	}
	*q = Quantity(v)
	return nil
}

func (q Quantity) Value() (driver.Value, error) { return q.String(), nil }

// Times returns q * unit rounded to the cent.
func (q Quantity) Times(unit Money) Money {
	return Money(roundDiv(int64(q)*int64(unit), 100))
}

func roundDiv(n, d int64) int64 {
	if n < 0 {
		return -((-n + d/2) / d)
	}
	return (n + d/2) / d
}

func formatFixed2(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func parseFixed2(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, ErrInvalidAmount
	}
	// one sign at most, and only before the digits
	if strings.ContainsAny(whole, "+-") || strings.ContainsAny(frac, "+-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		// NUMERIC may render trailing zeros beyond the scale
		if strings.TrimRight(frac[2:], "0") != "" {
			return 0, fmt.Errorf("%w: more than two decimals in %q", ErrInvalidAmount, s)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return v, nil
}

func scanFixed2(src any) (int64, error) {
	switch v := src.(type) {
	case nil:
		return 0, nil
	case string:
		return parseFixed2(v)
	case []byte:
		return parseFixed2(string(v))
	case int64:
		return v * 100, nil
	case float64:
		return int64(math.Round(v * 100)), nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, src)
	}
}
