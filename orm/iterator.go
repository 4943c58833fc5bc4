package orm

import "iter"

// paged reads a result size rows at a time with one fetch per page,
// starting at offset and stopping after limit rows when limit is positive.
// No fetch is running while a page is yielded, so the consumer may use
// the connection. A short page ends the sequence.
func paged[T any](fetch func(offset, limit int) ([]T, error), offset, limit, size int) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for read := 0; limit <= 0 || read < limit; read += size {
			n := size
			if limit > 0 {
				n = min(size, limit-read)
			}
			page, err := fetch(offset+read, n)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) > 0 && !yield(page, nil) {
				return
			}
			if len(page) < n {
				return
			}
		}
	}
}

// transformed applies fn to every element of seq. Iteration stops at the
// first error.
func transformed[T, U any](seq iter.Seq2[T, error], fn func(T) (U, error)) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for v, err := range seq {
			var out U
			if err == nil {
				out, err = fn(v)
			}
			if err != nil {
				yield(out, err)
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// unbatched flattens a sequence of slices.
func unbatched[T any](seq iter.Seq2[[]T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for batch, err := range seq {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, v := range batch {
				if !yield(v, nil) {
					return
				}
			}
		}
	}
}
