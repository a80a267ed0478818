// Package core holds the domain model shared by the engines: money and
// calendar value types, ledger entities, and the derived-state helpers the
// alert and goal rules are written against.
//
// Money is an integer number of cents. Ratio and percentage arithmetic goes
// through shopspring/decimal so that utilization and pace comparisons are not
// subject to floating-point drift; percentages only become float64 at the
// edge, when stored on an alert or insight row.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

func NewMoney(cents int64) Money { return Money{Cents: cents} }

// NewMoneyFromDecimal rounds a currency-unit decimal to whole cents.
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) IsZero() bool             { return m.Cents == 0 }
func (m Money) IsPositive() bool         { return m.Cents > 0 }
func (m Money) Add(o Money) Money        { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money        { return Money{Cents: m.Cents - o.Cents} }
func (m Money) GreaterThan(o Money) bool { return m.Cents > o.Cents }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(100))
}

// Units returns the currency-unit value as a float64, for message formatting
// only. Calculations stay on cents or decimal.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// PercentOf returns part/whole as a percentage. Zero whole yields zero.
func PercentOf(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(part.Cents).
		Div(decimal.NewFromInt(whole.Cents)).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return pct
}

// PercentChange returns the percent change from previous to current.
// Zero previous yields zero.
func PercentChange(current, previous Money) float64 {
	if previous.Cents == 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(current.Cents - previous.Cents).
		Div(decimal.NewFromInt(previous.Cents)).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return pct
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Dot and comma separators are both
// accepted. Negative and zero amounts are rejected; the entry kind carries
// the sign.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
