package store

// DeepMerge returns a copy of dst with patch merged in. Nested objects are
// merged key by key; any other patch value (including arrays) replaces the
// stored value. Nil patch values are ignored.
func DeepMerge(dst, patch map[string]any) map[string]any {
	out := cloneMap(dst)
	for k, v := range patch {
		if v == nil {
			continue
		}
		if pm, ok := v.(map[string]any); ok {
			if dm, ok := out[k].(map[string]any); ok {
				out[k] = DeepMerge(dm, pm)
				continue
			}
			out[k] = DeepMerge(nil, pm)
			continue
		}
		out[k] = v
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if vm, ok := v.(map[string]any); ok {
			v = cloneMap(vm)
		}
		out[k] = v
	}
	return out
}
