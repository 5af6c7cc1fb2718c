// Package format holds the display formatters used by forms and tables:
// progressive masks for Brazilian documents and phones, currency and
// dates in pt-BR, and backend image paths.
package format

import "strings"

// Digits strips every character that is not an ASCII digit.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// span returns d[i:j] clamped to the length of d.
func span(d string, i, j int) string {
	if i > len(d) {
		i = len(d)
	}
	if j > len(d) {
		j = len(d)
	}
	return d[i:j]
}

// CNPJ masks a company registration number as it is typed:
// "123" -> "12.3", "12345678000195" -> "12.345.678/0001-95".
func CNPJ(s string) string {
	d := Digits(s)
	switch n := len(d); {
	case n <= 2:
		return d
	case n <= 5:
		return d[:2] + "." + d[2:]
	case n <= 8:
		return d[:2] + "." + d[2:5] + "." + d[5:]
	case n <= 12:
		return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:]
	}
	return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + span(d, 12, 14)
}

// CPF masks an individual taxpayer number: "12345678901" -> "123.456.789-01".
func CPF(s string) string {
	d := Digits(s)
	switch n := len(d); {
	case n <= 3:
		return d
	case n <= 6:
		return d[:3] + "." + d[3:]
	case n <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + span(d, 9, 11)
}

// Phone masks landline and mobile numbers with area code.
// Ten digits or fewer use the landline shape "(11) 3456-7890",
// longer input the mobile shape "(11) 98765-4321".
func Phone(s string) string {
	d := Digits(s)
	switch n := len(d); {
	case n <= 2:
		return d
	case n <= 6:
		return "(" + d[:2] + ") " + d[2:]
	case n <= 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	}
	return "(" + d[:2] + ") " + d[2:7] + "-" + span(d, 7, 11)
}
