package domain

// Dimensions holds unit-less numeric strings; units are appended only at export time.
type Dimensions struct {
	Width  string `json:"width"`
	Height string `json:"height"`
	Depth  string `json:"depth"`
	Weight string `json:"weight"`
}

// Spec is a single technical specification entry. Duplicate keys are allowed.
type Spec struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProductRecord is the structured description of one item
type ProductRecord struct {
	Brand            string     `json:"brand"`
	SKU              string     `json:"sku"`
	Name             string     `json:"name"`
	Category         string     `json:"category"`
	ShortDescription string     `json:"shortDescription"`
	WhatsInTheBox    []string   `json:"whatsInTheBox"`
	Description      string     `json:"description"`
	KeyFeatures      []string   `json:"keyFeatures"`
	Material         string     `json:"material"`
	Dimensions       Dimensions `json:"dimensions"`
	BuyingBenefit    string     `json:"buyingBenefit"`
	Specs            []Spec     `json:"specs"`
	Terms            string     `json:"terms"`
}

// NewProductRecord returns an empty, fully shaped record.
func NewProductRecord() ProductRecord {
	return ProductRecord{
		WhatsInTheBox: []string{},
		KeyFeatures:   []string{},
		Specs:         []Spec{},
	}
}

// Normalize replaces nil sequences with empty ones so the record always
// serializes with every field present.
func (p *ProductRecord) Normalize() {
	if p.WhatsInTheBox == nil {
		p.WhatsInTheBox = []string{}
	}
	if p.KeyFeatures == nil {
		p.KeyFeatures = []string{}
	}
	if p.Specs == nil {
		p.Specs = []Spec{}
	}
}
