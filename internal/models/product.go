package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Product status and inventory defaults applied to every imported product.
const (
	ProductStatusActive = "active"

	DefaultVendor              = "Default Vendor"
	DefaultProductType         = "General"
	DefaultInventoryManagement = "shopify"
	DefaultInventoryPolicy     = "deny"
	DefaultWeightUnit          = "kg"

	// MetafieldNamespaceGlobal is the namespace that carries SEO keywords.
	MetafieldNamespaceGlobal = "global"
	MetafieldKeyKeywords     = "keywords"
	MetafieldTypeString      = "string"
)

// ProductDraft is the remote product payload built from one row.
type ProductDraft struct {
	Title          string      `json:"title"`
	BodyHTML       string      `json:"body_html"`
	Vendor         string      `json:"vendor"`
	ProductType    string      `json:"product_type"`
	Tags           string      `json:"tags"`
	Status         string      `json:"status"`
	Published      bool        `json:"published"`
	Handle         string      `json:"handle,omitempty"`
	SEOTitle       string      `json:"metafields_global_title_tag,omitempty"`
	SEODescription string      `json:"metafields_global_description_tag,omitempty"`
	Variants       []Variant   `json:"variants"`
	Options        []Option    `json:"options,omitempty"`
	Images         []Image     `json:"images,omitempty"`
	Metafields     []Metafield `json:"metafields,omitempty"`
}

// Variant is the single sellable unit of a draft.
type Variant struct {
	Price               string
	SKU                 string
	InventoryManagement string
	InventoryQuantity   int
	RequiresShipping    bool
	Taxable             bool
	Weight              float64
	WeightUnit          string
	InventoryPolicy     string
	// OptionValues maps option position to value; keys become option1..optionN.
	OptionValues map[int]string
}

// MarshalJSON flattens OptionValues into option<N> keys.
func (v Variant) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"price":                v.Price,
		"sku":                  v.SKU,
		"inventory_management": v.InventoryManagement,
		"inventory_quantity":   v.InventoryQuantity,
		"requires_shipping":    v.RequiresShipping,
		"taxable":              v.Taxable,
		"weight":               v.Weight,
		"weight_unit":          v.WeightUnit,
		"inventory_policy":     v.InventoryPolicy,
	}
	for n, value := range v.OptionValues {
		out[fmt.Sprintf("option%d", n)] = value
	}
	return json.Marshal(out)
}

// OptionPositions returns the populated option positions in ascending order.
func (v Variant) OptionPositions() []int {
	positions := make([]int, 0, len(v.OptionValues))
	for n := range v.OptionValues {
		positions = append(positions, n)
	}
	sort.Ints(positions)
	return positions
}

// Option is a named product dimension.
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Image is a product image reference.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Metafield is a namespaced key/value attached to a product.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// RemoteProduct is the subset of a remote product echoed back by the API.
type RemoteProduct struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	Status string `json:"status"`
}
