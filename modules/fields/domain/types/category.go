package types

// Category groups native and custom fields for display and validation.
// The set is fixed; proposals against anything else are rejected.
type Category string

const (
	CategoryBasicInfo  Category = "Basic Info"
	CategoryController Category = "Controller"
	CategoryDPO        Category = "DPO"
	CategoryProcessor  Category = "Processor"
	CategoryProcessing Category = "Processing"
	CategoryData       Category = "Data"
	CategoryRecipients Category = "Recipients"
	CategoryRetention  Category = "Retention"
	CategorySecurity   Category = "Security"
)

var categoryOrder = []Category{
	CategoryBasicInfo,
	CategoryController,
	CategoryDPO,
	CategoryProcessor,
	CategoryProcessing,
	CategoryData,
	CategoryRecipients,
	CategoryRetention,
	CategorySecurity,
}

func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

func (c Category) Valid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}
