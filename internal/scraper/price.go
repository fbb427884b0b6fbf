package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.]`)
	leadingNumber = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)
)

// ExtractPrice lê o preço de um texto como "From $129.99 - $199.99".
// Faixas ficam com o limite inferior (texto até o primeiro "-").
// Retorna false quando não há número; valores <= 0 ficam a cargo do chamador.
func ExtractPrice(text string) (decimal.Decimal, bool) {
	lower, _, _ := strings.Cut(text, "-")
	cleaned := nonPriceChars.ReplaceAllString(lower, "")

	m := leadingNumber.FindString(cleaned)
	if m == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return price.Round(2), true
}
