package xmlrpc

import (
	"fmt"
	"strings"
	"time"
)

// Params are the positional parameters of a call.
type Params []any

// String returns param i as a string; numbers are formatted, missing params are "".
func (p Params) String(i int) string {
	if i < 0 || i >= len(p) {
		return ""
	}
	return AsString(p[i])
}

// Struct returns param i as a struct, or nil.
func (p Params) Struct(i int) map[string]any {
	if i < 0 || i >= len(p) {
		return nil
	}
	m, _ := p[i].(map[string]any)
	return m
}

// Bool returns param i as a boolean, false when missing.
func (p Params) Bool(i int) bool {
	if i < 0 || i >= len(p) {
		return false
	}
	switch v := p[i].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	}
	return false
}

// AsString converts a decoded scalar to a string.
func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(s)
	}
}

// AsStrings converts an array (or a comma-separated string) to strings.
func AsStrings(v any) []string {
	switch s := v.(type) {
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str := strings.TrimSpace(AsString(item)); str != "" {
				out = append(out, str)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}
