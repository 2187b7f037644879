package dto

import (
	"bytes"
	"encoding/json"
)

// OptionalText decodes a JSON string, number or null. Money fields arrive as
// strings today but older exports used bare numbers.
type OptionalText struct {
	Value *string
}

func (o *OptionalText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		o.Value = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	s := n.String()
	o.Value = &s
	return nil
}
