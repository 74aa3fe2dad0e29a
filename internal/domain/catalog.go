package domain

import (
	"github.com/shopspring/decimal"
)

// Prices and totals travel as plain JSON numbers, the shape the SPA reads.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// featuredMarkup is applied to the pizza of the day to show a crossed-out "original" price.
var featuredMarkup = decimal.RequireFromString("1.2")

type Pizza struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nome"`
	Description string          `json:"descricao"`
	Price       decimal.Decimal `json:"preco"`
	Image       string          `json:"imagem"`
	Category    string          `json:"categoria"`
	Available   bool            `json:"disponivel"`
}

// FeaturedPizza is the pizza of the day as served to clients.
type FeaturedPizza struct {
	Pizza
	OriginalPrice decimal.Decimal `json:"precoOriginal"`
	Highlighted   bool            `json:"destaque"`
}

func NewFeaturedPizza(p Pizza) FeaturedPizza {
	return FeaturedPizza{
		Pizza:         p,
		OriginalPrice: p.Price.Mul(featuredMarkup).Round(2),
		Highlighted:   true,
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type Store struct {
	ID          int64       `json:"id"`
	Name        string      `json:"nome"`
	Address     string      `json:"morada"`
	Phone       string      `json:"telefone"`
	Hours       string      `json:"horario"`
	Coordinates Coordinates `json:"coordenadas"`
}
