// Package seller holds the fixed table of tracked sellers.
package seller

import (
	"fmt"

	"price_notifier/internal/extractor"
	"price_notifier/internal/model"
)

// Seller describes where a product page lives and how to read its price.
type Seller struct {
	ID          model.SellerID
	DisplayName string
	URL         string
	Rules       []extractor.Rule
}

// ExtractPrice applies the seller's rules to a page body.
func (s Seller) ExtractPrice(body string) (float64, error) {
	return extractor.Extract(s.Rules, body)
}

// iBox and Eraspace publish the same storefront JSON.
var storefrontRules = []extractor.Rule{
	extractor.Pattern(`"special_price":(.*?),`),
	extractor.Pattern(`"price":(.*?),`),
}

var digimapRules = []extractor.Rule{
	extractor.Pattern(`"amount":(.*?),`),
	extractor.SelectorRule{Selector: `meta[property='product:price:amount']`, Attr: "content"},
}

// Default returns the configured sellers in check order.
func Default() []Seller {
	return []Seller{
		{
			ID:          model.SellerIBox,
			DisplayName: "iBox",
			URL:         "https://ibox.co.id/product/14-inch-macbook-pro-m3-pro-s8100128517",
			Rules:       storefrontRules,
		},
		{
			ID:          model.SellerDigimap,
			DisplayName: "Digimap",
			URL:         "https://www.digimap.co.id/products/14-inch-macbook-pro-m3-pro-mrx63id-a",
			Rules:       digimapRules,
		},
		{
			ID:          model.SellerEraspace,
			DisplayName: "Eraspace",
			URL:         "https://eraspace.com/eraspace/produk/apple-macbook-pro-m3-pro--m3-max-14-inci-2024",
			Rules:       storefrontRules,
		},
	}
}

// Lookup finds a seller in the default table by ID.
func Lookup(id string) (Seller, error) {
	for _, s := range Default() {
		if string(s.ID) == id {
			return s, nil
		}
	}
	return Seller{}, fmt.Errorf("unknown seller %q", id)
}
