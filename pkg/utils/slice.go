package utils

func FilterSlice[S any, T any](in []S, f func(S) (T, bool)) []T {
	out := make([]T, 0, len(in))
	for _, s := range in {
		if t, ok := f(s); ok {
			out = append(out, t)
		}
	}
	return out
}

// Or returns the first non zero value.
func Or[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}
