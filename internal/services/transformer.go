package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"catalog-import-service/internal/models"
)

var (
	optionColumnPattern = regexp.MustCompile(`^option(\d+)$`)
	imageColumnPattern  = regexp.MustCompile(`^image_url(\d+)$`)
)

// RowTransformer maps a validated row onto a remote product draft
type RowTransformer struct{}

// NewRowTransformer creates a new row transformer
func NewRowTransformer() *RowTransformer {
	return &RowTransformer{}
}

// Transform builds the product draft for one row. It fails with a
// TransformError when the row has no title or a field cannot be coerced.
func (t *RowTransformer) Transform(row models.Row) (*models.ProductDraft, error) {
	title := row.String("title")
	if title == "" {
		return nil, &TransformError{Field: "title", Reason: "title is required"}
	}

	variant, err := t.buildVariant(row)
	if err != nil {
		return nil, err
	}

	draft := &models.ProductDraft{
		Title:          title,
		BodyHTML:       row.String("description"),
		Vendor:         row.StringOr("vendor", models.DefaultVendor),
		ProductType:    row.StringOr("product_type", models.DefaultProductType),
		Tags:           row.String("tags"),
		Status:         models.ProductStatusActive,
		Published:      true,
		Handle:         row.String("url_handle"),
		SEOTitle:       row.String("meta_title"),
		SEODescription: row.String("meta_description"),
	}

	if keywords := row.String("meta_keywords"); keywords != "" {
		draft.Metafields = append(draft.Metafields, models.Metafield{
			Namespace: models.MetafieldNamespaceGlobal,
			Key:       models.MetafieldKeyKeywords,
			Value:     keywords,
			Type:      models.MetafieldTypeString,
		})
	}

	if hierarchy := row.String("category_hierarchy"); hierarchy != "" {
		draft.Tags = appendCategoryTags(draft.Tags, hierarchy)
	}

	columns := row.Keys()
	for _, n := range models.NumberedColumns(columns, optionColumnPattern) {
		value := row.String(fmt.Sprintf("option%d", n))
		if value == "" {
			continue
		}
		name := row.StringOr(fmt.Sprintf("option%d_name", n), fmt.Sprintf("Option %d", n))
		draft.Options = append(draft.Options, models.Option{Name: name, Values: []string{value}})
		// Remote options are positional, so skipped columns leave no gap.
		variant.OptionValues[len(draft.Options)] = value
	}

	draft.Images = buildImages(row, columns)
	draft.Variants = []models.Variant{*variant}

	return draft, nil
}

func (t *RowTransformer) buildVariant(row models.Row) (*models.Variant, error) {
	price, err := formatPrice(row["price"])
	if err != nil {
		return nil, err
	}

	variant := &models.Variant{
		Price:               price,
		SKU:                 row.String("sku"),
		InventoryManagement: row.StringOr("inventory_management", models.DefaultInventoryManagement),
		RequiresShipping:    true,
		Taxable:             true,
		WeightUnit:          row.StringOr("weight_unit", models.DefaultWeightUnit),
		InventoryPolicy:     row.StringOr("inventory_policy", models.DefaultInventoryPolicy),
		OptionValues:        make(map[int]string),
	}

	if raw, ok := row.Present("inventory_quantity"); ok {
		qty, err := toInt(raw)
		if err != nil {
			return nil, &TransformError{Field: "inventory_quantity", Reason: err.Error()}
		}
		variant.InventoryQuantity = qty
	}
	if raw, ok := row.Present("requires_shipping"); ok {
		b, err := toBool(raw)
		if err != nil {
			return nil, &TransformError{Field: "requires_shipping", Reason: err.Error()}
		}
		variant.RequiresShipping = b
	}
	if raw, ok := row.Present("taxable"); ok {
		b, err := toBool(raw)
		if err != nil {
			return nil, &TransformError{Field: "taxable", Reason: err.Error()}
		}
		variant.Taxable = b
	}
	if raw, ok := row.Present("weight"); ok {
		w, err := toFloat(raw)
		if err != nil {
			return nil, &TransformError{Field: "weight", Reason: err.Error()}
		}
		variant.Weight = w
	}

	return variant, nil
}

// appendCategoryTags adds one category:<segment> tag per hierarchy level.
func appendCategoryTags(tags, hierarchy string) string {
	parts := make([]string, 0)
	if strings.TrimSpace(tags) != "" {
		parts = append(parts, strings.TrimSpace(tags))
	}
	for _, segment := range strings.Split(hierarchy, categorySeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parts = append(parts, "category:"+segment)
	}
	return strings.Join(parts, ", ")
}

// buildImages returns the primary image first, then numbered images in
// ascending order of their suffix.
func buildImages(row models.Row, columns []string) []models.Image {
	images := make([]models.Image, 0)
	if src := row.String("image_url"); src != "" {
		images = append(images, models.Image{Src: src, Alt: row.String("image_alt")})
	}
	for _, n := range models.NumberedColumns(columns, imageColumnPattern) {
		src := row.String(fmt.Sprintf("image_url%d", n))
		if src == "" {
			continue
		}
		images = append(images, models.Image{Src: src, Alt: row.String(fmt.Sprintf("image_alt%d", n))})
	}
	if len(images) == 0 {
		return nil
	}
	return images
}

func formatPrice(v interface{}) (string, error) {
	if f, ok := models.AsFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	if s, ok := v.(string); ok && pricePattern.MatchString(strings.TrimSpace(s)) {
		return strings.TrimSpace(s), nil
	}
	return "", &TransformError{Field: "price", Reason: fmt.Sprintf("%v is not a decimal amount", v)}
}

func toInt(v interface{}) (int, error) {
	if f, ok := models.AsFloat(v); ok {
		return int(f), nil
	}
	s := models.FormatValue(v)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), nil
	}
	return 0, fmt.Errorf("%q is not a whole number", s)
}

func toFloat(v interface{}) (float64, error) {
	if f, ok := models.AsFloat(v); ok {
		return f, nil
	}
	s := models.FormatValue(v)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}

func toBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if f, ok := models.AsFloat(v); ok {
		return f != 0, nil
	}
	switch strings.ToLower(models.FormatValue(v)) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("%v is not true or false", v)
}
