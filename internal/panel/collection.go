package panel

// Helpers used by mutation commands. Each one is idempotent so a revert stays
// correct after a refresh has replaced the collection underneath it.

func find[T any](items []T, match func(T) bool) (T, bool) {
	for _, it := range items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func indexWhere[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if !match(it) {
			out = append(out, it)
		}
	}
	return out
}

func replaceWhere[T any](items []T, match func(T) bool, with T) []T {
	for i := range items {
		if match(items[i]) {
			items[i] = with
		}
	}
	return items
}

// restoreAt puts rec back at idx unless a record matching it is already present.
func restoreAt[T any](items []T, idx int, rec T, match func(T) bool) []T {
	if indexWhere(items, match) >= 0 {
		return items
	}
	if idx < 0 || idx > len(items) {
		idx = len(items)
	}
	items = append(items, rec)
	copy(items[idx+1:], items[idx:])
	items[idx] = rec
	return items
}
