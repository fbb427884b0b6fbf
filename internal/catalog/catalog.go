// Package catalog define os peptídeos que o scraper reconhece e o algoritmo
// de correspondência entre títulos de produtos e o catálogo.
package catalog

import (
	"strings"
	"unicode"
)

// TargetPeptide é um peptídeo rastreado
type TargetPeptide struct {
	Name    string
	Slug    string
	Aliases []string
}

// A ordem importa: o primeiro peptídeo com algum alias contido no nome vence.
var peptides = []TargetPeptide{
	{Name: "BPC-157", Slug: "bpc-157", Aliases: []string{"bpc157", "bpc 157", "bodyprotectioncompound"}},
	{Name: "TB-500", Slug: "tb-500", Aliases: []string{"tb500", "tb 500", "thymosinbeta4", "thymosinbeta"}},
	{Name: "Semaglutide", Slug: "semaglutide", Aliases: []string{"semaglutide"}},
	{Name: "Tirzepatide", Slug: "tirzepatide", Aliases: []string{"tirzepatide"}},
	{Name: "Retatrutide", Slug: "retatrutide", Aliases: []string{"retatrutide"}},
	{Name: "Cagrilintide", Slug: "cagrilintide", Aliases: []string{"cagrilintide"}},
	{Name: "CJC-1295", Slug: "cjc-1295", Aliases: []string{"cjc1295", "cjc 1295"}},
	{Name: "Ipamorelin", Slug: "ipamorelin", Aliases: []string{"ipamorelin"}},
	{Name: "Sermorelin", Slug: "sermorelin", Aliases: []string{"sermorelin"}},
	{Name: "Tesamorelin", Slug: "tesamorelin", Aliases: []string{"tesamorelin"}},
	{Name: "Hexarelin", Slug: "hexarelin", Aliases: []string{"hexarelin"}},
	{Name: "GHRP-2", Slug: "ghrp-2", Aliases: []string{"ghrp2"}},
	{Name: "GHRP-6", Slug: "ghrp-6", Aliases: []string{"ghrp6"}},
	{Name: "GHK-Cu", Slug: "ghk-cu", Aliases: []string{"ghkcu", "ghk cu", "copperpeptide"}},
	{Name: "Epitalon", Slug: "epitalon", Aliases: []string{"epitalon", "epithalon"}},
	{Name: "Selank", Slug: "selank", Aliases: []string{"selank"}},
	{Name: "Semax", Slug: "semax", Aliases: []string{"semax"}},
	{Name: "PT-141", Slug: "pt-141", Aliases: []string{"pt141", "bremelanotide"}},
	{Name: "Melanotan II", Slug: "melanotan-ii", Aliases: []string{"melanotanii", "melanotan2"}},
	{Name: "MOTS-c", Slug: "mots-c", Aliases: []string{"motsc"}},
	{Name: "AOD-9604", Slug: "aod-9604", Aliases: []string{"aod9604"}},
	{Name: "Thymosin Alpha-1", Slug: "thymosin-alpha-1", Aliases: []string{"thymosinalpha1", "thymosinalpha"}},
	{Name: "DSIP", Slug: "dsip", Aliases: []string{"dsip", "deltasleepinducingpeptide"}},
	{Name: "Kisspeptin-10", Slug: "kisspeptin-10", Aliases: []string{"kisspeptin"}},
	{Name: "LL-37", Slug: "ll-37", Aliases: []string{"ll37"}},
	{Name: "Oxytocin", Slug: "oxytocin", Aliases: []string{"oxytocin"}},
}

var bySlug, byName = func() (map[string]TargetPeptide, map[string]TargetPeptide) {
	s := make(map[string]TargetPeptide, len(peptides))
	n := make(map[string]TargetPeptide, len(peptides))
	for _, p := range peptides {
		s[p.Slug] = p
		n[p.Name] = p
	}
	return s, n
}()

// All retorna uma cópia do catálogo na ordem de correspondência
func All() []TargetPeptide {
	out := make([]TargetPeptide, len(peptides))
	copy(out, peptides)
	return out
}

// Normalize converte para minúsculas e remove tudo que não é letra ou dígito
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindMatchingPeptide procura o primeiro peptídeo do catálogo cujo alias
// normalizado está contido no nome normalizado do produto.
func FindMatchingPeptide(productName string) (TargetPeptide, bool) {
	normalized := Normalize(productName)
	if normalized == "" {
		return TargetPeptide{}, false
	}
	for _, p := range peptides {
		for _, alias := range p.Aliases {
			a := Normalize(alias)
			if a != "" && strings.Contains(normalized, a) {
				return p, true
			}
		}
	}
	return TargetPeptide{}, false
}

// SlugFor resolve o slug de um nome canônico
func SlugFor(name string) (string, bool) {
	p, ok := byName[name]
	return p.Slug, ok
}

// BySlug busca um peptídeo pelo slug
func BySlug(slug string) (TargetPeptide, bool) {
	p, ok := bySlug[slug]
	return p, ok
}
