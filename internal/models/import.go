package models

// Row outcome statuses.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	// UnknownTitle is reported when a failed row had no title.
	UnknownTitle = "Unknown"
)

// ValidationReport is the batch-level verdict produced before any network work.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// UploadOutcome is the per-row result of a batch run.
type UploadOutcome struct {
	RowNumber int    `json:"rowNumber"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	ProductID *int64 `json:"productId,omitempty"`
}

// Succeeded reports whether the row produced a remote product.
func (o UploadOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// ImportSummary aggregates outcomes.
type ImportSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts outcomes by status.
func Summarize(outcomes []UploadOutcome) ImportSummary {
	summary := ImportSummary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// ImportColumn describes a column of the import template.
type ImportColumn struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// ProductImportColumns defines the columns understood by the importer.
// Numbered option and image columns may continue past the ones listed.
var ProductImportColumns = []ImportColumn{
	{Name: "title", Required: true, Description: "Product title", Example: "Wireless Headphones"},
	{Name: "price", Required: true, Description: "Variant price, up to two decimals", Example: "59.99"},
	{Name: "description", Required: false, Description: "Product description (HTML allowed)", Example: "<p>Over-ear, 30h battery</p>"},
	{Name: "vendor", Required: false, Description: "Vendor name", Example: "Acme Audio"},
	{Name: "product_type", Required: false, Description: "Product type", Example: "Headphones"},
	{Name: "tags", Required: false, Description: "Comma-separated tags", Example: "sale, wireless"},
	{Name: "sku", Required: false, Description: "Stock keeping unit", Example: "ACM-WH-01"},
	{Name: "inventory_management", Required: false, Description: "Inventory tracker", Example: "shopify"},
	{Name: "inventory_quantity", Required: false, Description: "Units in stock", Example: "25"},
	{Name: "inventory_policy", Required: false, Description: "deny or continue when out of stock", Example: "deny"},
	{Name: "requires_shipping", Required: false, Description: "true/false", Example: "true"},
	{Name: "taxable", Required: false, Description: "true/false", Example: "true"},
	{Name: "weight", Required: false, Description: "Weight value", Example: "0.35"},
	{Name: "weight_unit", Required: false, Description: "kg, g, lb or oz", Example: "kg"},
	{Name: "option1_name", Required: false, Description: "Name of the first option", Example: "Color"},
	{Name: "option1", Required: false, Description: "Value of the first option", Example: "Black"},
	{Name: "image_url", Required: false, Description: "Primary image URL", Example: "https://cdn.example.com/wh-01.jpg"},
	{Name: "image_alt", Required: false, Description: "Primary image alt text", Example: "Black headphones"},
	{Name: "image_url2", Required: false, Description: "Additional image URL", Example: "https://cdn.example.com/wh-01-side.jpg"},
	{Name: "image_alt2", Required: false, Description: "Additional image alt text", Example: "Side view"},
	{Name: "meta_title", Required: false, Description: "SEO title, up to 70 characters", Example: "Acme Wireless Headphones"},
	{Name: "meta_description", Required: false, Description: "SEO description, up to 160 characters", Example: "30 hours of wireless listening."},
	{Name: "meta_keywords", Required: false, Description: "SEO keywords", Example: "headphones, wireless"},
	{Name: "url_handle", Required: false, Description: "Lowercase letters, digits and hyphens", Example: "acme-wireless-headphones"},
	{Name: "category_hierarchy", Required: false, Description: "Categories separated by >", Example: "Electronics > Audio > Headphones"},
}
