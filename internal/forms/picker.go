package forms

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/smartshop/internal/model"
)

// fold lowercases s and strips diacritics so "Feijão" matches "feijao".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Option is one choice of a search-as-you-type picker.
type Option struct {
	ID           int64
	Name         string
	Abbreviation string
}

// Label renders "name (abbr)", or just the name.
func (o Option) Label() string {
	if o.Abbreviation == "" {
		return o.Name
	}
	return o.Name + " (" + o.Abbreviation + ")"
}

// Picker filters a small cached reference list as the user types.
type Picker struct {
	options []Option
}

func NewPicker(options []Option) *Picker {
	return &Picker{options: options}
}

func UnityPicker(us []model.Unity) *Picker {
	opts := make([]Option, 0, len(us))
	for _, u := range us {
		opts = append(opts, Option{ID: u.ID, Name: u.Name, Abbreviation: u.Abbreviation})
	}
	return NewPicker(opts)
}

func CategoryPicker(cs []model.Category) *Picker {
	opts := make([]Option, 0, len(cs))
	for _, c := range cs {
		opts = append(opts, Option{ID: c.ID, Name: c.Name, Abbreviation: c.Abbreviation})
	}
	return NewPicker(opts)
}

func CompanyPicker(cs []model.Company) *Picker {
	opts := make([]Option, 0, len(cs))
	for _, c := range cs {
		opts = append(opts, Option{ID: c.ID, Name: c.Name})
	}
	return NewPicker(opts)
}

// Filter returns the options whose name or abbreviation contains query,
// ignoring case and accents. An empty query returns everything.
func (p *Picker) Filter(query string) []Option {
	q := fold(query)
	if q == "" {
		return p.options
	}
	var out []Option
	for _, o := range p.options {
		if strings.Contains(fold(o.Name), q) || strings.Contains(fold(o.Abbreviation), q) {
			out = append(out, o)
		}
	}
	return out
}

// Selected returns the options with the given ids in list order.
func (p *Picker) Selected(ids []int64) []Option {
	var out []Option
	for _, o := range p.options {
		for _, id := range ids {
			if o.ID == id {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
