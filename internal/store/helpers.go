package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

// unmarshalStrings converts JSON text back to []string.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var ss []string
	_ = json.Unmarshal([]byte(s), &ss)
	return ss
}

// marshalMetadata converts a Metadata blob to JSON text for storage.
func marshalMetadata(m Metadata) string {
	b, _ := json.Marshal(m)
	return string(b)
}

// unmarshalMetadata converts JSON text back to a Metadata blob.
func unmarshalMetadata(s string) Metadata {
	var m Metadata
	if s == "" || s == "null" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}
