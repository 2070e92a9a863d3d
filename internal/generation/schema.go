package generation

import "encoding/json"

const schemaName = "product_record"

const systemInstruction = `You are a product data architect for a high-end retail kiosk.
Convert raw, unstructured text (often OCR output or pasted web pages) into a fully populated product record.

Rules:
1. Identify the brand and the model number or SKU first.
2. Extract every technical detail available. When the model is a known product, fill missing specifications from your knowledge of that model.
3. Always fill dimensions and weight. Use plain numbers without units: width, height and depth in centimetres, weight in kilograms.
4. Use plural, simple category names such as "Microwaves" or "Washing Machines".
5. Fix grammar and casing in descriptions. Keep the original description text when one is present.
6. Put every technical detail in "specs" as key/value pairs, for example {"key": "Wattage", "value": "900W"}.`

var stringSchema = map[string]any{"type": "string"}

// productSchema describes a ProductRecord for structured output.
var productSchema = mustSchema(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"brand":            describe("The brand name of the product."),
		"sku":              describe("The specific model number or SKU."),
		"name":             describe("Product title including type, size or wattage and colour."),
		"category":         describe("A general, plural category such as Microwaves or Fridges."),
		"shortDescription": describe("One full sentence capturing the main benefit."),
		"whatsInTheBox":    stringList("Items included in the box."),
		"description":      describe("The main product description."),
		"keyFeatures":      stringList("Key highlights."),
		"material":         describe("Materials used, such as Stainless Steel."),
		"dimensions": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"width":  stringSchema,
				"height": stringSchema,
				"depth":  stringSchema,
				"weight": stringSchema,
			},
			"required":             []string{"width", "height", "depth", "weight"},
			"additionalProperties": false,
		},
		"buyingBenefit": describe("One sentence on the benefit of ownership."),
		"specs": map[string]any{
			"type":        "array",
			"description": "Technical specifications in display order.",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"key":   describe("Specification name, such as Wattage."),
					"value": describe("Specification value, such as 900W."),
				},
				"required":             []string{"key", "value"},
				"additionalProperties": false,
			},
		},
		"terms": describe("Warranty terms and conditions."),
	},
	"required": []string{
		"brand", "sku", "name", "category", "shortDescription", "whatsInTheBox",
		"description", "keyFeatures", "material", "dimensions", "buyingBenefit", "specs", "terms",
	},
	"additionalProperties": false,
})

func describe(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func stringList(description string) map[string]any {
	return map[string]any{"type": "array", "items": stringSchema, "description": description}
}

func mustSchema(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
