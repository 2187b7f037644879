package shopify

import (
	"fmt"
	"time"
)

const (
	orderGIDPrefix   = "gid://shopify/Order/"
	productGIDPrefix = "gid://shopify/Product/"
	variantGIDPrefix = "gid://shopify/ProductVariant/"
)

const ordersBulkQueryTemplate = `
mutation {
	bulkOperationRunQuery(
		query: """
		{
			orders(query: "created_at:>=%s") {
				edges {
					node {
						id
						createdAt
						lineItems {
							edges {
								node {
									product {
										id
									}
								}
							}
						}
					}
				}
			}
		}
		"""
	) {
		bulkOperation {
			id
			status
		}
		userErrors {
			field
			message
		}
	}
}`

const productsBulkQuery = `
mutation {
	bulkOperationRunQuery(
		query: """
		{
			products(query: "status:active") {
				edges {
					node {
						id
						createdAt
						variants {
							edges {
								node {
									id
									price
									compareAtPrice
								}
							}
						}
					}
				}
			}
		}
		"""
	) {
		bulkOperation {
			id
			status
		}
		userErrors {
			field
			message
		}
	}
}`

// BuildOrdersBulkQuery selects every order created on or after the UTC date of since.
func BuildOrdersBulkQuery(since time.Time) string {
	return fmt.Sprintf(ordersBulkQueryTemplate, since.UTC().Format(time.DateOnly))
}

func BuildProductsBulkQuery() string {
	return productsBulkQuery
}
