package orm

import (
	"errors"
	"iter"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pages returns a fetch over vs recording the requested windows. The
// fetch fails with err once offset reaches failAt.
func pages(vs []int, err error, failAt int, windows *[][2]int) func(offset, limit int) ([]int, error) {
	return func(offset, limit int) ([]int, error) {
		*windows = append(*windows, [2]int{offset, limit})
		if err != nil && offset >= failAt {
			return nil, err
		}
		if offset >= len(vs) {
			return nil, nil
		}
		return vs[offset:min(offset+limit, len(vs))], nil
	}
}

func collect[T any](s iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestPaged(t *testing.T) {
	var windows [][2]int
	got, err := collect(paged(pages([]int{1, 2, 3}, nil, 0, &windows), 0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {3}}, got)
	assert.Equal(t, [][2]int{{0, 2}, {2, 2}}, windows, "a short page ends the sequence")

	windows = nil
	got, err = collect(paged(pages([]int{1, 2, 3, 4}, nil, 0, &windows), 0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}}, got)
	assert.Equal(t, [][2]int{{0, 2}, {2, 2}, {4, 2}}, windows)

	windows = nil
	got, err = collect(paged(pages([]int{1, 2, 3, 4, 5, 6}, nil, 0, &windows), 1, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 3}, {4}}, got, "offset and limit bound the pages")
	assert.Equal(t, [][2]int{{1, 2}, {3, 1}}, windows)

	windows = nil
	errRead := errors.New("read")
	got, err = collect(paged(pages([]int{1, 2, 3}, errRead, 2, &windows), 0, 0, 2))
	assert.ErrorIs(t, err, errRead)
	assert.Equal(t, [][]int{{1, 2}}, got)
}

func TestPipeline(t *testing.T) {
	five := []int{1, 2, 3, 4, 5}
	var windows [][2]int
	double := func(batch []int) ([]string, error) {
		out := make([]string, len(batch))
		for i, v := range batch {
			out[i] = strconv.Itoa(v * 2)
		}
		return out, nil
	}
	got, err := collect(unbatched(transformed(paged(pages(five, nil, 0, &windows), 0, 0, 2), double)))
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "6", "8", "10"}, got, "order is preserved across batches")

	var calls int
	errConvert := errors.New("convert")
	failing := func(batch []int) ([]string, error) {
		calls++
		if calls == 2 {
			return nil, errConvert
		}
		return double(batch)
	}
	got, err = collect(unbatched(transformed(paged(pages(five, nil, 0, &windows), 0, 0, 2), failing)))
	assert.ErrorIs(t, err, errConvert)
	assert.Equal(t, []string{"2", "4"}, got)
	assert.Equal(t, 2, calls, "conversion stops at the first error")

	windows = nil
	var seen []string
	for v, err := range unbatched(transformed(paged(pages(five, nil, 0, &windows), 0, 0, 2), double)) {
		require.NoError(t, err)
		seen = append(seen, v)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"2", "4", "6"}, seen)
	assert.Len(t, windows, 2, "no page is read past the break")
}
