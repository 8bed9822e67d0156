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

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

// UnmarshalStrings converts JSON text back to []string.
// Exported for use by QueryBuilder.
func UnmarshalStrings(s string) []string {
	return unmarshalStrings(s)
}

func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var ss []string
	_ = json.Unmarshal([]byte(s), &ss)
	if len(ss) == 0 {
		return nil
	}
	return ss
}

type scanner interface{ Scan(...any) error }
