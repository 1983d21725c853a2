package parser

// Strategy is one named way of locating a field inside a card. Selector is
// a CSS selector relative to the card. When Attrs is set the first non-empty
// attribute of the matched element is used, otherwise its text.
type Strategy struct {
	Name     string   `yaml:"name" json:"name"`
	Selector string   `yaml:"selector" json:"selector"`
	Attrs    []string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// SelectorSet lists, per field, the strategies tried in order. The first
// strategy producing a non-empty value wins.
type SelectorSet struct {
	Cards    []string   `yaml:"cards" json:"cards"`
	Title    []Strategy `yaml:"title" json:"title"`
	Price    []Strategy `yaml:"price" json:"price"`
	Location []Strategy `yaml:"location" json:"location"`
	Image    []Strategy `yaml:"image" json:"image"`
}

var imageAttrs = []string{"src", "data-src", "data-lazy-src"}

// DefaultSelectors matches CoinAfrique listing cards, with generic
// class-substring fallbacks for markup variants.
func DefaultSelectors() SelectorSet {
	return SelectorSet{
		Cards: []string{
			"div.card.ad__card",
			"div.ad__card",
			"div.col.s6.m4.l3",
			`[class*="ad__card"]`,
		},
		Title: []Strategy{
			{Name: "card-description", Selector: "p.ad__card-description"},
			{Name: "description-class", Selector: `[class*="description"]`},
			{Name: "title-class", Selector: `[class*="title"]`},
		},
		Price: []Strategy{
			{Name: "card-price", Selector: "p.ad__card-price"},
			{Name: "price-class", Selector: `[class*="price"]`},
		},
		Location: []Strategy{
			{Name: "card-location", Selector: "p.ad__card-location span"},
			{Name: "card-location-block", Selector: "p.ad__card-location"},
			{Name: "location-class", Selector: `[class*="location"]`},
		},
		Image: []Strategy{
			{Name: "card-img", Selector: "img.ad__card-img", Attrs: imageAttrs},
			{Name: "any-img", Selector: "img", Attrs: imageAttrs},
		},
	}
}

// Merge returns s with empty lists filled from fallback.
func (s SelectorSet) Merge(fallback SelectorSet) SelectorSet {
	if len(s.Cards) == 0 {
		s.Cards = fallback.Cards
	}
	if len(s.Title) == 0 {
		s.Title = fallback.Title
	}
	if len(s.Price) == 0 {
		s.Price = fallback.Price
	}
	if len(s.Location) == 0 {
		s.Location = fallback.Location
	}
	if len(s.Image) == 0 {
		s.Image = fallback.Image
	}
	return s
}
