package iterutil

import "iter"

// Uniq returns an iterator that yields the values of seq skipping the ones already yielded.
// The first occurrence wins, so the order of seq is kept.
func Uniq[V comparable](seq iter.Seq[V]) iter.Seq[V] {
	return func(yield func(V) bool) {
		seen := map[V]struct{}{}
		for v := range seq {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			if !yield(v) {
				return
			}
		}
	}
}
