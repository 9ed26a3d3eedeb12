package jsonutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ToJSON serializes a Go value to a JSON string with indentation.
// Returns an empty string if serialization fails.
func ToJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// DecodeStrict unmarshals data into v, rejecting unknown fields and
// trailing documents. Empty or null data leaves v untouched.
func DecodeStrict(data []byte, v any) error {
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON document")
	}
	return nil
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\uFEFF"))
}
