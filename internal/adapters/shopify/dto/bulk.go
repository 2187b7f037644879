package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type BulkOperationRunQueryData struct {
	BulkOperationRunQuery struct {
		BulkOperation *BulkOperationNode `json:"bulkOperation,omitempty"`
		UserErrors    []ShopifyUserError `json:"userErrors,omitempty"`
	} `json:"bulkOperationRunQuery"`
}

type CurrentBulkOperationData struct {
	CurrentBulkOperation *BulkOperationNode `json:"currentBulkOperation"`
}

// BulkOperationNode mirrors the BulkOperation object. objectCount and
// fileSize are UnsignedInt64 scalars, which Shopify serializes as strings.
type BulkOperationNode struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	ErrorCode      *string   `json:"errorCode,omitempty"`
	ObjectCount    FlexInt64 `json:"objectCount"`
	FileSize       FlexInt64 `json:"fileSize"`
	URL            *string   `json:"url,omitempty"`
	PartialDataURL *string   `json:"partialDataUrl,omitempty"`
}

// FlexInt64 accepts a JSON number, a numeric string or null.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*f = FlexInt64(n)
	return nil
}
