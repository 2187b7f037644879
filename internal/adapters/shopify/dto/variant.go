package dto

type ProductVariantsBulkUpdateData struct {
	ProductVariantsBulkUpdate struct {
		ProductVariants []struct {
			ID             string  `json:"id,omitempty"`
			CompareAtPrice *string `json:"compareAtPrice,omitempty"`
		} `json:"productVariants,omitempty"`
		UserErrors []ShopifyUserError `json:"userErrors,omitempty"`
	} `json:"productVariantsBulkUpdate"`
}

// ProductVariantsBulkInput only carries the compare-at price. A nil pointer
// is serialized as null, which clears the field on Shopify.
type ProductVariantsBulkInput struct {
	ID             string  `json:"id"`
	CompareAtPrice *string `json:"compareAtPrice"`
}

// BulkLine is the union of every field a bulk export line can carry. Which
// fields are set depends on the entity the line describes.
type BulkLine struct {
	ID             string       `json:"id"`
	ParentID       string       `json:"__parentId"`
	CreatedAt      string       `json:"createdAt"`
	Product        *ProductRef  `json:"product"`
	Price          OptionalText `json:"price"`
	CompareAtPrice OptionalText `json:"compareAtPrice"`
}

type ProductRef struct {
	ID string `json:"id"`
}
