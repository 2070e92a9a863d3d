package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"kiosk-architect/internal/domain"
)

const (
	BrandFileName   = "brand.json"
	DetailsFileName = "details.json"

	FallbackBrand    = "Unknown Brand"
	FallbackCategory = "Uncategorized"
	FallbackProduct  = "Untitled Product"
	FallbackManual   = "manual.pdf"

	defaultLogoExt  = "png"
	defaultImageExt = "jpg"
	defaultVideoExt = "mp4"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// File is a single file of the destination tree
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Folder is a named directory holding files in write order
type Folder struct {
	Name  string
	Files []File
}

// Tree describes the brand/category/product layout produced by one export.
// It is a pure value shared by every backend.
type Tree struct {
	Brand    Folder
	Category string
	Product  Folder
}

// ProductPath is the slash separated path of the product directory.
func (t Tree) ProductPath() string {
	return path.Join(t.Brand.Name, t.Category, t.Product.Name)
}

// Paths lists every file of the tree relative to the root, in write order.
func (t Tree) Paths() []string {
	paths := make([]string, 0, len(t.Brand.Files)+len(t.Product.Files))
	for _, f := range t.Brand.Files {
		paths = append(paths, path.Join(t.Brand.Name, f.Name))
	}
	for _, f := range t.Product.Files {
		paths = append(paths, path.Join(t.ProductPath(), f.Name))
	}
	return paths
}

// BrandDocument is the content of brand.json
type BrandDocument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DimensionsEntry is one labelled dimension set of details.json
type DimensionsEntry struct {
	Label  string `json:"label"`
	Height string `json:"height"`
	Width  string `json:"width"`
	Depth  string `json:"depth"`
	Weight string `json:"weight"`
}

// DetailsDocument is the content of details.json consumed by the kiosk display.
type DetailsDocument struct {
	Name             string            `json:"name"`
	SKU              string            `json:"sku"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"shortDescription"`
	Terms            string            `json:"terms"`
	Specs            []domain.Spec     `json:"specs"`
	Features         []string          `json:"features"`
	BoxContents      []string          `json:"boxContents"`
	BuyingBenefit    string            `json:"buyingBenefit"`
	Material         string            `json:"material"`
	Dimensions       []DimensionsEntry `json:"dimensions"`
}

// NewBrandDocument derives brand.json from the raw brand and its folder name.
func NewBrandDocument(rawBrand, brandSegment string) BrandDocument {
	name := strings.TrimSpace(rawBrand)
	if name == "" {
		name = brandSegment
	}
	return BrandDocument{
		ID:   "b-" + whitespaceRun.ReplaceAllString(strings.ToLower(brandSegment), "-"),
		Name: name,
	}
}

// NewDetailsDocument projects a record into the flat details.json shape.
// Units are concatenated without validation.
func NewDetailsDocument(record domain.ProductRecord) DetailsDocument {
	record.Normalize()
	return DetailsDocument{
		Name:             record.Name,
		SKU:              record.SKU,
		Description:      record.Description,
		ShortDescription: record.ShortDescription,
		Terms:            record.Terms,
		Specs:            record.Specs,
		Features:         record.KeyFeatures,
		BoxContents:      record.WhatsInTheBox,
		BuyingBenefit:    record.BuyingBenefit,
		Material:         record.Material,
		Dimensions: []DimensionsEntry{
			{
				Label:  "Product",
				Height: record.Dimensions.Height + " cm",
				Width:  record.Dimensions.Width + " cm",
				Depth:  record.Dimensions.Depth + " cm",
				Weight: record.Dimensions.Weight + " kg",
			},
		},
	}
}

// Project maps a record and its media onto the destination tree.
func Project(record domain.ProductRecord, media domain.MediaBundle) (Tree, error) {
	brandSegment := Sanitize(strings.TrimSpace(record.Brand), FallbackBrand)
	categorySegment := Sanitize(strings.TrimSpace(record.Category), FallbackCategory)
	productSegment := Sanitize(strings.TrimSpace(record.Name), FallbackProduct)

	tree := Tree{
		Brand:    Folder{Name: brandSegment},
		Category: categorySegment,
		Product:  Folder{Name: productSegment},
	}

	if media.Logo != nil {
		tree.Brand.Files = append(tree.Brand.Files, assetFile("brand_logo", defaultLogoExt, *media.Logo))
	}
	brandJSON, err := encodeDocument(NewBrandDocument(record.Brand, brandSegment))
	if err != nil {
		return Tree{}, fmt.Errorf("failed to encode %s: %w", BrandFileName, err)
	}
	tree.Brand.Files = append(tree.Brand.Files, File{Name: BrandFileName, ContentType: "application/json", Data: brandJSON})

	detailsJSON, err := encodeDocument(NewDetailsDocument(record))
	if err != nil {
		return Tree{}, fmt.Errorf("failed to encode %s: %w", DetailsFileName, err)
	}
	tree.Product.Files = append(tree.Product.Files, File{Name: DetailsFileName, ContentType: "application/json", Data: detailsJSON})

	if media.Cover != nil {
		tree.Product.Files = append(tree.Product.Files, assetFile("cover", defaultImageExt, *media.Cover))
	}
	for i, asset := range media.Gallery {
		tree.Product.Files = append(tree.Product.Files, assetFile(fmt.Sprintf("gallery_%d", i+1), defaultImageExt, asset))
	}
	for i, asset := range media.Videos {
		tree.Product.Files = append(tree.Product.Files, assetFile(fmt.Sprintf("video_%d", i+1), defaultVideoExt, asset))
	}

	taken := make(map[string]bool, len(tree.Product.Files)+len(media.Manuals))
	for _, f := range tree.Product.Files {
		taken[strings.ToLower(f.Name)] = true
	}
	for _, manual := range media.Manuals {
		name := uniqueName(ManualFileName(manual.DisplayName), taken)
		taken[strings.ToLower(name)] = true
		tree.Product.Files = append(tree.Product.Files, File{
			Name:        name,
			ContentType: manual.Asset.ContentType,
			Data:        manual.Asset.Data,
		})
	}

	return tree, nil
}

// Extension returns the text after the last dot of filename, or fallback when
// there is none.
func Extension(filename, fallback string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return fallback
	}
	return Sanitize(filename[idx+1:], fallback)
}

// ManualFileName derives the output file name of a manual from its display name.
// A blank display name yields FallbackManual ("manual.pdf"), never a bare ".pdf".
func ManualFileName(displayName string) string {
	raw := strings.TrimSpace(displayName)
	if raw == "" {
		return FallbackManual
	}
	if !strings.HasSuffix(strings.ToLower(raw), ".pdf") {
		raw += ".pdf"
	}
	return Sanitize(raw, FallbackManual)
}

func assetFile(base, defaultExt string, asset domain.Asset) File {
	return File{
		Name:        base + "." + Extension(asset.Filename, defaultExt),
		ContentType: asset.ContentType,
		Data:        asset.Data,
	}
}

// uniqueName inserts " (n)" before the extension until name no longer collides
// case-insensitively with a taken name.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[strings.ToLower(name)] {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// encodeDocument renders v as two-space indented JSON without HTML escaping
// and without a trailing newline.
func encodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
