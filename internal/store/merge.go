// internal/store/merge.go
package store

// deepMerge writes src into dst. Nested objects merge field by field; any other value,
// nil included, replaces what dst holds.
func deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		sub, ok := v.(map[string]interface{})
		if !ok {
			dst[k] = v
			continue
		}
		existing, _ := dst[k].(map[string]interface{})
		dst[k] = deepMerge(cloneMap(existing), sub)
	}
	return dst
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]interface{}); ok {
			out[k] = cloneMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}
