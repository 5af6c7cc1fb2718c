package forms

import "strings"

// DefaultCategory is suggested when no keyword matches.
const DefaultCategory = "Outros"

// SuggestCategory guesses a product category from its name: an exact match
// first, then the first keyword contained in the name.
func SuggestCategory(name string) string {
	n := fold(name)
	if n == "" {
		return DefaultCategory
	}
	if cat, ok := exactCategory[n]; ok {
		return cat
	}
	for _, e := range categoryKeywords {
		if strings.Contains(n, e.keyword) {
			return e.category
		}
	}
	return DefaultCategory
}

var exactCategory = map[string]string{
	"arroz":   "Mercearia",
	"feijao":  "Mercearia",
	"acucar":  "Mercearia",
	"sal":     "Mercearia",
	"cafe":    "Mercearia",
	"leite":   "Laticínios",
	"ovos":    "Laticínios",
	"pao":     "Padaria",
	"banana":  "Hortifruti",
	"maca":    "Hortifruti",
	"alface":  "Hortifruti",
	"tomate":  "Hortifruti",
	"batata":  "Hortifruti",
	"cebola":  "Hortifruti",
	"alho":    "Hortifruti",
	"agua":    "Bebidas",
	"cerveja": "Bebidas",
}

type categoryKeyword struct {
	keyword  string
	category string
}

// Longer, more specific keywords first.
var categoryKeywords = []categoryKeyword{
	{"agua sanitaria", "Limpeza"},
	{"peito de frango", "Carnes"},
	{"carne moida", "Carnes"},
	{"papel higienico", "Limpeza"},
	{"creme dental", "Higiene"},
	{"pasta de dente", "Higiene"},
	{"sorvete", "Congelados"},
	{"congelad", "Congelados"},
	{"lasanha", "Congelados"},
	{"detergente", "Limpeza"},
	{"sabao", "Limpeza"},
	{"amaciante", "Limpeza"},
	{"desinfetante", "Limpeza"},
	{"shampoo", "Higiene"},
	{"sabonete", "Higiene"},
	{"desodorante", "Higiene"},
	{"refrigerante", "Bebidas"},
	{"suco", "Bebidas"},
	{"cerveja", "Bebidas"},
	{"vinho", "Bebidas"},
	{"agua", "Bebidas"},
	{"iogurte", "Laticínios"},
	{"queijo", "Laticínios"},
	{"manteiga", "Laticínios"},
	{"requeijao", "Laticínios"},
	{"leite", "Laticínios"},
	{"frango", "Carnes"},
	{"carne", "Carnes"},
	{"linguica", "Carnes"},
	{"peixe", "Carnes"},
	{"bisnaguinha", "Padaria"},
	{"biscoito", "Padaria"},
	{"bolo", "Padaria"},
	{"pao", "Padaria"},
	{"arroz", "Mercearia"},
	{"feijao", "Mercearia"},
	{"macarrao", "Mercearia"},
	{"oleo", "Mercearia"},
	{"farinha", "Mercearia"},
	{"molho", "Mercearia"},
	{"fruta", "Hortifruti"},
	{"verdura", "Hortifruti"},
	{"legume", "Hortifruti"},
}
