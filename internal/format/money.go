package format

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// BRL renders v as Brazilian reais: 1234.5 -> "R$ 1.234,50".
func BRL(v float64) string {
	return printer.Sprintf("R$ %v", number.Decimal(v, number.Scale(2)))
}

// Int renders n with pt-BR digit grouping: 12580 -> "12.580".
func Int(n int) string {
	return printer.Sprintf("%v", number.Decimal(n))
}

// Percent renders a 0-100 value without decimals: 66.6 -> "67%".
func Percent(v float64) string {
	return printer.Sprintf("%v%%", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Date renders t as dd/mm/yyyy. The zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
