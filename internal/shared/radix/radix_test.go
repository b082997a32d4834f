package radix

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

type pair struct {
	key   int64
	value int64
}

func interleave(pairs []pair) []int64 {
	data := make([]int64, 2*len(pairs))
	for i, p := range pairs {
		data[2*i] = p.key
		data[2*i+1] = p.value
	}
	return data
}

func sortedReference(pairs []pair, bySecond bool) []int64 {
	out := append([]pair(nil), pairs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := uint64(out[i].key), uint64(out[j].key)
		if bySecond {
			a, b = uint64(out[i].value), uint64(out[j].value)
		}
		return a < b
	})
	if bySecond {
		for i := range out {
			out[i].key, out[i].value = out[i].value, out[i].key
		}
	}
	return interleave(out)
}

func assertSameInt64s(t *testing.T, got, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSortOrdersPairsByKey(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	cases := map[string]func(i int) pair{
		"small keys":      func(i int) pair { return pair{key: int64(rng.Intn(200)), value: int64(i)} },
		"full range keys": func(i int) pair { return pair{key: int64(rng.Uint64()), value: int64(i)} },
		"all equal":       func(i int) pair { return pair{key: 7, value: int64(i)} },
		"already sorted":  func(i int) pair { return pair{key: int64(i), value: int64(i)} },
	}

	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			pairs := make([]pair, 500)
			for i := range pairs {
				pairs[i] = gen(i)
			}

			data := interleave(pairs)
			buf := make([]int64, len(data))
			Sort(data, buf, NewHistogram(), len(data))

			assertSameInt64s(t, data, sortedReference(pairs, false))
		})
	}
}

func TestSortStability(t *testing.T) {
	pairs := make([]pair, 300)
	for i := range pairs {
		pairs[i] = pair{key: int64(i % 7), value: int64(i)}
	}

	data := interleave(pairs)
	buf := make([]int64, len(data))
	Sort(data, buf, NewHistogram(), len(data))

	for i := 2; i < len(data); i += 2 {
		if data[i] < data[i-2] {
			t.Fatalf("keys out of order at pair %d: %d after %d", i/2, data[i], data[i-2])
		}
		if data[i] == data[i-2] && data[i+1] <= data[i-1] {
			t.Fatalf("equal keys %d reordered: value %d after %d", data[i], data[i+1], data[i-1])
		}
	}
}

func TestSortUnsignedKeyOrder(t *testing.T) {
	pairs := []pair{
		{key: -1, value: 0},
		{key: 5, value: 1},
		{key: math.MinInt64, value: 2},
		{key: 0, value: 3},
		{key: math.MaxInt64, value: 4},
	}

	data := interleave(pairs)
	buf := make([]int64, len(data))
	Sort(data, buf, NewHistogram(), len(data))

	wantKeys := []int64{0, 5, math.MaxInt64, math.MinInt64, -1}
	for i, want := range wantKeys {
		if data[2*i] != want {
			t.Errorf("position %d: got key %d, want %d", i, data[2*i], want)
		}
	}
}

func TestSortWithCompanions(t *testing.T) {
	pairs := []pair{
		{key: 30, value: 100},
		{key: 10, value: 101},
		{key: 20, value: 102},
		{key: 10, value: 103},
	}
	additional := []int64{1000, 1001, 1002, 1003}
	names := []string{"thirty", "ten-a", "twenty", "ten-b"}

	data := interleave(pairs)
	buf := make([]int64, len(data))
	addBuf := make([]int64, len(additional))
	nameBuf := make([]string, len(names))
	SortWith(data, buf, NewHistogram(), len(data), additional, addBuf, names, nameBuf)

	wantValues := []int64{101, 103, 102, 100}
	wantAdditional := []int64{1001, 1003, 1002, 1000}
	wantNames := []string{"ten-a", "ten-b", "twenty", "thirty"}
	for i := range wantValues {
		if data[2*i+1] != wantValues[i] {
			t.Errorf("pair value %d: got %d, want %d", i, data[2*i+1], wantValues[i])
		}
		if additional[i] != wantAdditional[i] {
			t.Errorf("additional %d: got %d, want %d", i, additional[i], wantAdditional[i])
		}
		if names[i] != wantNames[i] {
			t.Errorf("name %d: got %q, want %q", i, names[i], wantNames[i])
		}
	}
}

func TestSortBySecond(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pairs := make([]pair, 400)
	for i := range pairs {
		pairs[i] = pair{key: int64(rng.Uint64()), value: int64(rng.Intn(50))}
	}

	data := interleave(pairs)
	buf := make([]int64, len(data))
	SortBySecond(data, buf, NewHistogram(), len(data))

	assertSameInt64s(t, data, sortedReference(pairs, true))
}

func TestSortBySecondSwapsPairElements(t *testing.T) {
	pairs := []pair{
		{key: 11, value: 2},
		{key: 22, value: 1},
	}

	data := interleave(pairs)
	buf := make([]int64, len(data))
	SortBySecond(data, buf, NewHistogram(), len(data))

	want := []int64{1, 22, 2, 11}
	assertSameInt64s(t, data, want)
}

func TestSortZeroLength(t *testing.T) {
	Sort(nil, nil, NewHistogram(), 0)
	SortBySecond(nil, nil, NewHistogram(), 0)
}

func TestSortContractViolations(t *testing.T) {
	expectPanic := func(t *testing.T, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		fn()
	}

	t.Run("histogram too small", func(t *testing.T) {
		data := make([]int64, 4)
		expectPanic(t, func() {
			Sort(data, make([]int64, 4), make([]int, 256), 4)
		})
	})

	t.Run("odd length", func(t *testing.T) {
		data := make([]int64, 3)
		expectPanic(t, func() {
			Sort(data, make([]int64, 3), NewHistogram(), 3)
		})
	})

	t.Run("buffer too short", func(t *testing.T) {
		data := make([]int64, 4)
		expectPanic(t, func() {
			Sort(data, make([]int64, 2), NewHistogram(), 4)
		})
	})
}
