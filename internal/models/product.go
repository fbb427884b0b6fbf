package models

import "github.com/shopspring/decimal"

// ScrapedProduct representa um peptídeo encontrado na vitrine de um fornecedor
// durante uma execução. Name é sempre o nome canônico do catálogo.
type ScrapedProduct struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	InStock   bool            `json:"in_stock"`
	SourceURL string          `json:"source_url,omitempty"`
}

// MergeProduct adiciona p à lista mantendo no máximo uma entrada por peptídeo;
// em caso de duplicata fica o menor preço.
func MergeProduct(products []ScrapedProduct, p ScrapedProduct) []ScrapedProduct {
	for i := range products {
		if products[i].Name == p.Name {
			if p.Price.LessThan(products[i].Price) {
				products[i] = p
			}
			return products
		}
	}
	return append(products, p)
}
