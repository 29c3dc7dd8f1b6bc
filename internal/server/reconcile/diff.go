package reconcile

// ComputeRemovals returns the ids present locally but absent remotely. An
// empty remote set removes every local id; callers must not call it after a
// failed fetch.
func ComputeRemovals(remote, local map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range local {
		if _, ok := remote[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func idSet[T any](items []T, id func(T) string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		if v := id(it); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
